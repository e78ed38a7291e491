// Package keyserver fetches AWS access key pairs from a plain HTTP key
// distribution endpoint. The endpoint answers GET with "<key>:<secret>".
package keyserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxBodySize = 4096

var (
	// ErrUnavailable is returned when the key server cannot be reached or answers with a non-2xx status.
	ErrUnavailable = errors.New("key server unavailable")
	// ErrMalformed is returned when the key server answers with something that is not "<key>:<secret>".
	ErrMalformed = errors.New("malformed credentials")
)

// Pair is an access key with its secret.
type Pair struct {
	AccessKey string
	SecretKey string
}

// String hides the secret.
func (p Pair) String() string {
	return fmt.Sprintf("access_key=%s secret_key=***", p.AccessKey)
}

// Client fetches a fresh Pair on every call. Nothing is cached.
type Client struct {
	url        string
	httpClient *http.Client
}

// New ...
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch requests a key pair from the key server.
func (c *Client) Fetch(ctx context.Context) (Pair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Pair{}, fmt.Errorf("build key request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Pair{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Pair{}, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	return Parse(string(body))
}

// Parse splits "<key>:<secret>" on the first colon.
func Parse(raw string) (Pair, error) {
	key, secret, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Pair{}, fmt.Errorf("%w: missing separator", ErrMalformed)
	}
	key, secret = strings.TrimSpace(key), strings.TrimSpace(secret)
	if key == "" || secret == "" {
		return Pair{}, fmt.Errorf("%w: empty key or secret", ErrMalformed)
	}
	return Pair{AccessKey: key, SecretKey: secret}, nil
}
