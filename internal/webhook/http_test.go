package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimylabs/aimy/internal/logging"
)

func testClient(url string) *HTTPClient {
	c := NewHTTPClient(HTTPOptions{
		URL:        url,
		AuthHeader: "X-AIMY-Token",
		AuthValue:  "secret",
		Log:        logging.New(io.Discard, "silent"),
	})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestAskSuccess(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-AIMY-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"answer":"Controleer de sensor.","citations":[{"docId":"doc-1","section":"p.4"}]}`)
	}))
	defer srv.Close()

	answer, err := testClient(srv.URL).Ask(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "Controleer de sensor.", answer.Text)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "secret", gotAuth)
	assert.Equal(t, "E12 op het display", gotBody["query"])
	assert.Equal(t, "AB-12-1700000000", gotBody["chat_id"])
}

func TestAskRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"answer":"Gelukt."}`)
	}))
	defer srv.Close()

	answer, err := testClient(srv.URL).Ask(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Gelukt.", answer.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAskExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Ask(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusBadGateway, reqErr.Status)
	assert.True(t, reqErr.Retryable())
}

func TestAskClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Ask(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must fail immediately")

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
	assert.False(t, reqErr.Retryable())
}

func TestAskTimeoutRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.timeout = 20 * time.Millisecond

	_, err := c.Ask(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.True(t, reqErr.Timeout)
}

func TestAskConnectionErrorRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	_, err := testClient(srv.URL).Ask(context.Background(), testRequest())
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, 0, reqErr.Status)
	assert.True(t, reqErr.Retryable())
}

func TestAskInvalidResponseNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, "definitely not json")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Ask(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAskCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).Ask(ctx, testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDelays(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(0))
	assert.Equal(t, 2*time.Second, backoffDelay(1))
	assert.Equal(t, 4*time.Second, backoffDelay(2))
	assert.Equal(t, 4*time.Second, backoffDelay(9))
}

func TestPingOptionsThenGet(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(logging.New(io.Discard, "silent"))
	result := p.Ping(context.Background(), srv.URL, "X-AIMY-Token", "secret")

	assert.True(t, result.OK)
	assert.Equal(t, http.MethodGet, result.Method)
	assert.Equal(t, []string{http.MethodOptions, http.MethodGet}, methods)
}

func TestPingOptionsSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewProber(logging.New(io.Discard, "silent"))
	result := p.Ping(context.Background(), srv.URL, "X-AIMY-Token", "")

	assert.True(t, result.OK)
	assert.Equal(t, http.MethodOptions, result.Method)
	assert.Equal(t, http.StatusNoContent, result.Status)
}

func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewProber(logging.New(io.Discard, "silent"))
	result := p.Ping(context.Background(), srv.URL, "X-AIMY-Token", "")

	assert.False(t, result.OK)
}

func TestProberLastRequestWins(t *testing.T) {
	p := NewProber(logging.New(io.Discard, "silent"))

	first := p.Begin()
	second := p.Begin()

	assert.True(t, p.Stale(first))
	assert.False(t, p.Stale(second))
}
