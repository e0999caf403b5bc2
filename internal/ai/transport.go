package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RetryPolicy bounds how often and how patiently a runtime retries transient
// failures. MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 2
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 4 * time.Second
	}
	return p
}

// transport is the HTTP plumbing shared by the runtimes: JSON POST, error
// classification, bounded retry with jittered backoff and optional pacing.
type transport struct {
	httpClient *http.Client
	policy     RetryPolicy
	limiter    *rate.Limiter
	// unreachable wraps dial failures; nil keeps the raw error.
	unreachable func(error) error
}

func newTransport(timeout time.Duration, policy RetryPolicy) transport {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return transport{httpClient: &http.Client{Timeout: timeout}, policy: policy.withDefaults()}
}

// paceRequests limits outbound calls to perMinute. Zero disables pacing.
func (t *transport) paceRequests(perMinute int) {
	if perMinute <= 0 {
		t.limiter = nil
		return
	}
	t.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// postJSON sends payload to endpoint and decodes a 2xx body into out.
// It returns the provider request ID when one is present.
func (t *transport) postJSON(ctx context.Context, endpoint string, headers map[string]string, payload []byte, out any) (string, error) {
	backoff := t.policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= t.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := t.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if isRetryableNetErr(err) && attempt < t.policy.MaxAttempts {
				lastErr = err
				if err := sleepCtx(ctx, t.capped(withJitter(backoff))); err != nil {
					return "", err
				}
				backoff *= 2
				continue
			}
			if t.unreachable != nil {
				return "", t.unreachable(err)
			}
			return "", fmt.Errorf("http request: %w", err)
		}

		requestID, retry, wait, err := t.read(resp, out)
		if err == nil {
			return requestID, nil
		}
		lastErr = err
		if !retry || attempt >= t.policy.MaxAttempts {
			break
		}
		if wait <= 0 {
			wait = t.capped(withJitter(backoff))
			backoff *= 2
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (t *transport) read(resp *http.Response, out any) (requestID string, retry bool, wait time.Duration, err error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		classified := classifyAPIError(apiErr, resp)
		if !retryableStatus(resp.StatusCode) {
			return "", false, 0, classified
		}
		if rl, ok := classified.(*RateLimitError); ok && rl.RetryAfter > 0 {
			wait = t.capped(rl.RetryAfter)
		}
		return "", true, wait, classified
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", false, 0, fmt.Errorf("decode response: %w", err)
	}
	return extractRequestID(resp), false, 0, nil
}

func (t *transport) capped(d time.Duration) time.Duration {
	if t.policy.MaxDelay > 0 && d > t.policy.MaxDelay {
		return t.policy.MaxDelay
	}
	return d
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
