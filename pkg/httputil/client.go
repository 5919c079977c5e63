package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/qcdash/pkg/config"
	"github.com/wonny/qcdash/pkg/logger"
	"github.com/wonny/qcdash/pkg/redis"
)

// Client is an HTTP client wrapper with retry, rate limiting and logging
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	retry        RetryPolicy
	limiter      *rate.Limiter
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
}

// RequestBuilder creates the request for one attempt.
// It runs again on every retry so time-based headers stay fresh.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.QC.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	retry := DefaultRetryPolicy()
	if cfg.QC.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.QC.MaxAttempts
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		retry:      retry,
	}
	return c.WithLocalRateLimit(cfg.QC.RateLimit)
}

// WithRetryPolicy replaces the retry policy
func (c *Client) WithRetryPolicy(p RetryPolicy) *Client {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	c.retry = p
	return c
}

// RetryPolicy returns the active retry policy
func (c *Client) RetryPolicy() RetryPolicy {
	return c.retry
}

// WithLocalRateLimit sets the in-process token bucket (0 disables it)
func (c *Client) WithLocalRateLimit(perSecond int) *Client {
	if perSecond <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	return c
}

// WithRateLimiter sets the shared Redis rate limiter for this client
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.rateLimiter = limiter
	c.rateLimitCfg = &cfg
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create GET request: %w", err)
		}
		return req, nil
	})
}

// Do executes the request with rate limiting, retry and logging.
// Retryable failures that outlive the policy come back as *RetryError.
func (c *Client) Do(ctx context.Context, build RequestBuilder) (*http.Response, error) {
	startTime := time.Now()

	for attempt := 1; ; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		req, err := build(ctx)
		if err != nil {
			return nil, err
		}

		log := c.logger.WithFields(map[string]interface{}{
			"method":  req.Method,
			"path":    req.URL.Path,
			"attempt": attempt,
		})
		log.Debug("HTTP request started")

		resp, err := c.httpClient.Do(req)

		retryable, reason := c.classify(ctx, resp, err)
		if !retryable {
			if err != nil {
				log.WithError(err).WithField("duration", time.Since(startTime)).Error("HTTP request failed")
				return nil, err
			}
			log.WithFields(map[string]interface{}{
				"status_code": resp.StatusCode,
				"duration":    time.Since(startTime),
			}).Debug("HTTP request completed")
			return resp, nil
		}

		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}

		delay := c.retry.Delay(attempt)
		if d, ok := retryAfter(resp, time.Now()); ok {
			delay = d
			if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}
		discard(resp)

		if attempt >= c.retry.MaxAttempts {
			log.WithError(reason).WithField("duration", time.Since(startTime)).Error("HTTP request failed after all retries")
			return nil, &RetryError{Attempts: attempt, StatusCode: statusCode, Err: reason}
		}

		if c.retry.OnRetry != nil {
			c.retry.OnRetry(attempt, delay, reason)
		}
		log.WithError(reason).WithField("delay", delay).Warn("Retrying HTTP request")

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// classify decides whether an attempt outcome is worth retrying
func (c *Client) classify(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err != nil {
		// Cancelled or timed-out runs are never retried
		if ctx.Err() != nil {
			return false, err
		}
		return true, err
	}
	if IsRetryableStatus(resp.StatusCode) {
		return true, statusError(resp.StatusCode)
	}
	return false, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			// The limiter refuses early when the next token lands after the deadline
			if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
				return fmt.Errorf("rate limit wait: %w", context.DeadlineExceeded)
			}
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		if err := c.rateLimiter.Wait(ctx, *c.rateLimitCfg); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// discard drains and closes a response body so the connection can be reused
func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
