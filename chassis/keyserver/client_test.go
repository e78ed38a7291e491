package keyserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Pair
		wantErr error
	}{
		{name: "plain", raw: "AKIA123:s3cr3t", want: Pair{AccessKey: "AKIA123", SecretKey: "s3cr3t"}},
		{name: "trailing newline", raw: "AKIA123:s3cr3t\n", want: Pair{AccessKey: "AKIA123", SecretKey: "s3cr3t"}},
		{name: "secret with colon", raw: "AKIA123:a:b", want: Pair{AccessKey: "AKIA123", SecretKey: "a:b"}},
		{name: "no separator", raw: "AKIA123", wantErr: ErrMalformed},
		{name: "empty secret", raw: "AKIA123:", wantErr: ErrMalformed},
		{name: "empty key", raw: ":s3cr3t", wantErr: ErrMalformed},
		{name: "empty body", raw: "", wantErr: ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPairStringHidesSecret(t *testing.T) {
	p := Pair{AccessKey: "AKIA123", SecretKey: "s3cr3t"}
	assert.NotContains(t, p.String(), "s3cr3t")
	assert.Contains(t, p.String(), "AKIA123")
}

func TestFetch(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/key", r.URL.Path)
		w.Write([]byte("AKIA123:s3cr3t\n"))
	}))
	defer srv.Close()

	client := New(srv.URL+"/key", time.Second)
	for i := 0; i < 2; i++ {
		pair, err := client.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "AKIA123", pair.AccessKey)
		assert.Equal(t, "s3cr3t", pair.SecretKey)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "every fetch must hit the key server")
}

func TestFetchErrors(t *testing.T) {
	t.Run("non 2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second).Fetch(context.Background())
		assert.ErrorIs(t, err, ErrUnavailable)
	})
	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(url, time.Second).Fetch(context.Background())
		assert.ErrorIs(t, err, ErrUnavailable)
	})
	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html>oops</html>"))
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second).Fetch(context.Background())
		assert.ErrorIs(t, err, ErrMalformed)
	})
	t.Run("canceled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("a:b"))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(srv.URL, time.Second).Fetch(ctx)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
	})
	t.Run("deadline exceeded", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := New(srv.URL, time.Second).Fetch(ctx)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
