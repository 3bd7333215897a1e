// Package providers fetches daily OHLCV history for KRX equities from
// public finance endpoints, behind a common interface so sources can be
// swapped or stacked as fallbacks.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"krscreener/market"
)

// DataProvider is a single daily-bar history source.
type DataProvider interface {
	Name() string
	// Priority orders fallback attempts; higher runs first.
	Priority() int
	// FetchDailyBars returns up to days daily bars for a 6-digit KRX code,
	// newest-last not guaranteed; the manager sorts and deduplicates.
	FetchDailyBars(ctx context.Context, code string, days int) ([]market.Bar, error)
}

// ErrAllProvidersFailed is returned when every registered source failed to
// produce a usable series.
var ErrAllProvidersFailed = errors.New("all data providers failed")

// ProviderError wraps a per-source fetch or parse failure.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

const (
	fetchTimeout = 10 * time.Second
	extraRetries = 2
	retryBackoff = 300 * time.Millisecond
)

// doWithRetry performs an HTTP request with a small fixed retry budget and a
// short fixed backoff. newReq must build a fresh request each attempt since
// request bodies are single-use.
func doWithRetry(ctx context.Context, client *http.Client, newReq func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= extraRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}
		return body, nil
	}
	return nil, lastErr
}
