package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aimylabs/aimy/internal/logging"
)

// RequestError describes a failed webhook call. Status is 0 for transport
// level failures (connection refused, DNS, timeout).
type RequestError struct {
	Status  int
	Timeout bool
	Err     error
}

func (e *RequestError) Error() string {
	if e.Timeout {
		return "webhook request timed out"
	}
	if e.Status > 0 {
		return fmt.Sprintf("webhook returned status %d", e.Status)
	}
	return fmt.Sprintf("webhook request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt can succeed: timeouts, network
// failures, and 5xx responses. Client errors (4xx) are permanent.
func (e *RequestError) Retryable() bool {
	return e.Timeout || e.Status == 0 || e.Status >= 500
}

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	URL        string
	AuthHeader string
	AuthValue  string
	Attempts   int           // total attempts, default 3
	Timeout    time.Duration // per attempt, default 15s
	Log        *logging.Logger
	HTTPClient *http.Client // optional, for tests
}

// HTTPClient posts request payloads to the configured webhook with a per
// attempt timeout and backoff between retries.
type HTTPClient struct {
	url        string
	authHeader string
	authValue  string
	attempts   int
	timeout    time.Duration
	client     *http.Client
	log        *logging.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewHTTPClient creates a webhook client.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &HTTPClient{
		url:        opts.URL,
		authHeader: opts.AuthHeader,
		authValue:  opts.AuthValue,
		attempts:   opts.Attempts,
		timeout:    opts.Timeout,
		client:     opts.HTTPClient,
		log:        opts.Log.Sub("webhook"),
		sleep:      sleepContext,
	}
}

// backoffDelays are the waits before the second and later attempts.
var backoffDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

func backoffDelay(attempt int) time.Duration {
	if attempt < len(backoffDelays) {
		return backoffDelays[attempt]
	}
	return backoffDelays[len(backoffDelays)-1]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ask posts the payload and parses the answer. Transient failures (5xx,
// timeout, network error) are retried with backoff; 4xx responses and
// serialization failures are surfaced immediately.
func (c *HTTPClient) Ask(ctx context.Context, req Request) (Answer, error) {
	payload, err := json.Marshal(BuildPayload(req))
	if err != nil {
		// retrying cannot make the payload serializable
		return Answer{}, fmt.Errorf("encoding webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt - 1)
			c.log.Debug().
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Msg("retrying webhook request")
			if err := c.sleep(ctx, delay); err != nil {
				return Answer{}, err
			}
		}

		answer, err := c.post(ctx, payload)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		var reqErr *RequestError
		if !errors.As(err, &reqErr) || !reqErr.Retryable() {
			return Answer{}, err
		}
		c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("webhook request failed")
	}
	return Answer{}, lastErr
}

func (c *HTTPClient) post(ctx context.Context, payload []byte) (Answer, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Answer{}, fmt.Errorf("creating webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authValue != "" {
		httpReq.Header.Set(c.authHeader, c.authValue)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return Answer{}, &RequestError{Timeout: true, Err: err}
		}
		if ctx.Err() != nil {
			return Answer{}, ctx.Err()
		}
		return Answer{}, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Answer{}, &RequestError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Answer{}, &RequestError{Status: resp.StatusCode}
	}

	answer, err := ParseAnswer(body)
	if err != nil {
		return Answer{}, fmt.Errorf("parsing webhook response: %w", err)
	}
	return answer, nil
}
