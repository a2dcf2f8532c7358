// Package source holds one adapter per external paper catalog. Each
// adapter maps domain tags to the catalog's own taxonomy, paces its
// requests with a minimum inter-request interval, and retries transient
// failures with linear backoff before giving up on a query.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxAttempts      = 3
	retryBaseDelay   = 3 * time.Second
	maxResponseBytes = 8 << 20
)

// getWithRetry performs a rate-limited GET, retrying transient failures
// (network errors, 429, 5xx) up to maxAttempts with linear backoff.
func getWithRetry(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, header http.Header, logger *slog.Logger, provider string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := doGet(ctx, client, url, header)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable || attempt == maxAttempts {
			break
		}

		delay := retryBaseDelay * time.Duration(attempt)
		logger.Warn("source_fetch_retry",
			slog.String("provider", provider),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

func doGet(ctx context.Context, client *http.Client, url string, header http.Header) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read body: %w", err)
	}
	return data, false, nil
}
