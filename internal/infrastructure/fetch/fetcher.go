package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
)

// ErrUnavailable is returned once every attempt for a URL has failed.
var ErrUnavailable = errors.New("source unavailable")

const (
	defaultRetries   = 2
	defaultBackoff   = time.Second
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "BetaTracker/1.0"
	maxBodyBytes     = 5 << 20
)

// Options tunes retry and transport behaviour. Zero values take defaults;
// a negative Retries disables retrying.
type Options struct {
	Retries   int
	Backoff   time.Duration
	Timeout   time.Duration
	UserAgent string
	// RequestsPerSecond caps outgoing requests when positive.
	RequestsPerSecond float64
}

// Fetcher retrieves text documents over HTTP with bounded retries.
type Fetcher struct {
	client    *http.Client
	retries   int
	backoff   time.Duration
	timeout   time.Duration
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

var _ ports.Fetcher = (*Fetcher)(nil)

// New wires an HTTP client; a nil client gets a plain http.Client since
// timeouts are applied per attempt.
func New(client *http.Client, opts Options, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}

	f := &Fetcher{
		client:    client,
		retries:   opts.Retries,
		backoff:   opts.Backoff,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    logger,
		sleep:     sleepContext,
	}
	if f.retries == 0 {
		f.retries = defaultRetries
	}
	if f.retries < 0 {
		f.retries = 0
	}
	if f.backoff <= 0 {
		f.backoff = defaultBackoff
	}
	if f.timeout <= 0 {
		f.timeout = defaultTimeout
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if opts.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return f
}

// Fetch returns the body of url. Attempt n+1 waits n times the backoff.
// When all attempts fail the error wraps ErrUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * f.backoff
			f.debug("retry fetch", "url", url, "attempt", attempt+1, "wait", wait, "error", lastErr)
			if err := f.sleep(ctx, wait); err != nil {
				return "", fmt.Errorf("fetch %s: %w", url, err)
			}
		}

		body, err := f.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("fetch %s: %w", url, ctx.Err())
		}
		lastErr = err
	}

	f.warn("source unavailable", "url", url, "attempts", f.retries+1, "error", lastErr)
	return "", fmt.Errorf("fetch %s after %d attempts: %w: %v", url, f.retries+1, ErrUnavailable, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, url string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(body), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *Fetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
