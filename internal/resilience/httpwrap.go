package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps an http.Client with timeout, retry and circuit-breaker
// logic. Only idempotent methods are retried; every other request gets a
// single attempt regardless of MaxAttempts.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
}

// Do executes the request. Responses with status below 500 are returned as
// is. When every attempt ends in a 5xx the last response is returned so the
// caller can read the error body. ErrOpenCircuit is returned while the
// breaker refuses traffic.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		breaker = NewBreaker(1, 1, time.Second)
	}
	maxAttempts := cl.MaxAttempts
	if maxAttempts <= 0 || !idempotent(req.Method) {
		maxAttempts = 1
	}
	baseBackoff := cl.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	body, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	target := breaker.targetLabel()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !breaker.Allow(ctx) {
			recordAttempt(target, "rejected", time.Time{})
			return nil, ErrOpenCircuit
		}
		started := time.Now()
		resp, err := cl.doOnce(ctx, cloneRequest(ctx, req, body))
		switch {
		case err == nil && resp.StatusCode < 500:
			breaker.Report(ctx, true)
			recordAttempt(target, "ok", started)
			return resp, nil
		case err == nil:
			breaker.Report(ctx, false)
			recordAttempt(target, "server_error", started)
			if attempt == maxAttempts {
				return resp, nil
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("resilience: upstream status %s", resp.Status)
		default:
			breaker.Report(ctx, false)
			recordAttempt(target, "transport_error", started)
			lastErr = err
			if attempt == maxAttempts {
				return nil, lastErr
			}
		}

		timer := time.NewTimer(Backoff(baseBackoff, attempt, cl.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		return cl.Client.Do(req)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelBody releases the per-attempt timeout once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, "":
		return true
	default:
		return false
	}
}

func replayableBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	_ = req.Body.Close()
	return data, nil
}

func cloneRequest(ctx context.Context, req *http.Request, body []byte) *http.Request {
	clone := req.Clone(ctx)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		clone.ContentLength = int64(len(body))
	}
	return clone
}
