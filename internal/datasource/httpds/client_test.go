package httpds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(cfg Config) *Client {
	c := NewClient(cfg)
	c.sleep = func(time.Duration) {}
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{InsecureSkipVerify: true})

	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
	assert.Equal(t, 0, c.maxRetries)
	assert.Equal(t, 200*time.Millisecond, c.initialBackoff)
	assert.Equal(t, 30*time.Second, c.maxBackoff)

	tr, ok := c.httpClient.Transport.(*http.Transport)
	require.True(t, ok, "transport type %T", c.httpClient.Transport)
	require.NotNil(t, tr.TLSClientConfig)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestDo_RetriesTransientStatusThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(Config{MaxRetries: 3})
	resp, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(Config{MaxRetries: 2})
	_, err := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retryable status 502")
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestDo_NonRetryableStatusIsReturned(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(Config{MaxRetries: 5})
	resp, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDo_HeadersMerge(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Auth", r.Header.Get("Authorization"))
		w.Header().Set("X-Trace", r.Header.Get("X-Trace"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(Config{BaseHeaders: http.Header{
		"Authorization": {"Bearer base"},
		"X-Trace":       {"base"},
	}})
	resp, err := c.Get(context.Background(), srv.URL, http.Header{"X-Trace": {"override"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "Bearer base", resp.Header.Get("X-Auth"))
	assert.Equal(t, "override", resp.Header.Get("X-Trace"))
}

func TestDo_ValidatesArguments(t *testing.T) {
	t.Parallel()

	c := newTestClient(Config{})
	_, err := c.Do(context.Background(), "", "http://x", nil, nil)
	require.Error(t, err)
	_, err = c.Do(context.Background(), http.MethodGet, "", nil, nil)
	require.Error(t, err)
}

func TestDo_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(Config{})
	_, err := c.Get(ctx, "http://127.0.0.1:1", nil)
	assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"n": 12345678901234567890}`))
	}))
	defer srv.Close()

	c := newTestClient(Config{})

	var out map[string]any
	require.NoError(t, c.GetJSON(context.Background(), srv.URL+"/ok", nil, &out))
	assert.Equal(t, json.Number("12345678901234567890"), out["n"])

	err := c.GetJSON(context.Background(), srv.URL+"/missing", nil, &out)
	var se *StatusError
	require.True(t, errors.As(err, &se), "err = %v", err)
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Contains(t, string(se.Body), "NOT_FOUND")
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first", 0, 100 * time.Millisecond},
		{"second", 1, 200 * time.Millisecond},
		{"third", 2, 400 * time.Millisecond},
		{"clamped", 5, time.Second},
		{"huge", 64, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, backoffDuration(100*time.Millisecond, tt.attempt, time.Second))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	d, ok := retryAfter("3")
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	_, ok = retryAfter("")
	assert.False(t, ok)

	_, ok = retryAfter("soon")
	assert.False(t, ok)

	_, ok = retryAfter(time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat))
	assert.True(t, ok)
}
