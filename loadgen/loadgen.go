// Package loadgen drives a running gateway with a steady stream of writes and
// consumes. It is used to smoke test deployments and to feed the metrics.
package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/freundallein/sqsgateway/chassis/logging"

	"github.com/freundallein/sqsgateway/gateway"
)

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Config ...
type Config struct {
	Target  string
	Queue   string
	Workers int
	Pause   time.Duration
	// Token is sent as a bearer token when set.
	Token  string
	Client *http.Client
}

// Stats counts finished calls across all workers.
type Stats struct {
	Written  atomic.Int64
	Consumed atomic.Int64
	Empty    atomic.Int64
	Failed   atomic.Int64
}

func (s *Stats) String() string {
	return fmt.Sprintf("written=%d consumed=%d empty=%d failed=%d",
		s.Written.Load(), s.Consumed.Load(), s.Empty.Load(), s.Failed.Load())
}

type consumed struct {
	Message *struct {
		ID string `json:"id"`
	} `json:"message"`
}

func randSeq(rnd *rand.Rand, n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rnd.Intn(len(letters))]
	}
	return string(b)
}

func (cfg *Config) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		bin, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(bin)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(cfg.Target, "/")+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", gateway.MediaTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	return resp.StatusCode, payload, err
}

// EnsureQueue creates the target queue. An existing queue with the same
// attributes is not an error.
func EnsureQueue(ctx context.Context, cfg *Config) error {
	status, payload, err := cfg.do(ctx, http.MethodPost, "/queues", map[string]string{"name": cfg.Queue})
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("create queue %s: status %d: %s", cfg.Queue, status, strings.TrimSpace(string(payload)))
	}
	return nil
}

func (cfg *Config) write(ctx context.Context, content string) error {
	status, payload, err := cfg.do(ctx, http.MethodPost, "/queues/"+url.PathEscape(cfg.Queue)+"/msgs", map[string]string{"content": content})
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("write: status %d: %s", status, strings.TrimSpace(string(payload)))
	}
	return nil
}

// consume reports whether a message was removed.
func (cfg *Config) consume(ctx context.Context) (bool, error) {
	status, payload, err := cfg.do(ctx, http.MethodDelete, "/queues/"+url.PathEscape(cfg.Queue)+"/msgs", nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("consume: status %d: %s", status, strings.TrimSpace(string(payload)))
	}
	var resp consumed
	if err := json.Unmarshal(payload, &resp); err != nil {
		return false, err
	}
	return resp.Message != nil, nil
}

func worker(ctx context.Context, cfg *Config, stats *Stats, workerID int, group *sync.WaitGroup) {
	defer group.Done()
	rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	for {
		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"event":  "ctx_canceled",
				"worker": workerID,
			}).Info("exit goroutine")
			return
		case <-time.After(cfg.Pause):
		}
		if err := cfg.write(ctx, randSeq(rnd, 10)); err != nil {
			if ctx.Err() == nil {
				stats.Failed.Add(1)
				log.WithFields(log.Fields{
					"event":  "write_message_failed",
					"worker": workerID,
				}).Error(err)
			}
			continue
		}
		stats.Written.Add(1)

		ok, err := cfg.consume(ctx)
		switch {
		case err != nil:
			if ctx.Err() == nil {
				stats.Failed.Add(1)
				log.WithFields(log.Fields{
					"event":  "consume_message_failed",
					"worker": workerID,
				}).Error(err)
			}
		case ok:
			stats.Consumed.Add(1)
		default:
			stats.Empty.Add(1)
		}
	}
}

// Run starts cfg.Workers workers against cfg.Target. They stop when ctx is canceled.
func Run(ctx context.Context, cfg *Config, group *sync.WaitGroup) *Stats {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	log.WithFields(log.Fields{
		"event":  "start_service",
		"target": cfg.Target,
		"queue":  cfg.Queue,
	}).Info("starting ", cfg.Workers, " workers")
	stats := &Stats{}
	for wrk := 1; wrk <= cfg.Workers; wrk++ {
		group.Add(1)
		go worker(ctx, cfg, stats, wrk, group)
	}
	return stats
}
