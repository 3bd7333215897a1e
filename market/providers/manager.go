package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"krscreener/market"
)

const (
	// historyDays is how many daily bars to request from each source. Naver
	// serves ten bars per page, so this stays comfortably above MinBars.
	historyDays = 60

	cacheSize = 256
	cacheTTL  = 10 * time.Minute
)

// Manager resolves a symbol code to a validated PriceSeries, trying
// registered providers in priority order. Successful fetches are memoized
// per code with a bounded TTL; offline (uploaded) series take absolute
// precedence over live sources.
type Manager struct {
	mu        sync.RWMutex
	providers []DataProvider
	offline   map[string]*market.PriceSeries

	cache *expirable.LRU[string, *market.PriceSeries]
	log   *zap.SugaredLogger
}

func NewManager(log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		offline: make(map[string]*market.PriceSeries),
		cache:   expirable.NewLRU[string, *market.PriceSeries](cacheSize, nil, cacheTTL),
		log:     log,
	}
}

// AddProvider registers a source. Providers are attempted highest priority
// first.
func (m *Manager) AddProvider(p DataProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, p)
	sort.SliceStable(m.providers, func(i, j int) bool {
		return m.providers[i].Priority() > m.providers[j].Priority()
	})
}

// PutOffline registers a manually supplied series for a code, bypassing
// network access for it entirely.
func (m *Manager) PutOffline(code string, ps *market.PriceSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline[code] = ps
}

// Offline reports whether a code has an uploaded series registered.
func (m *Manager) Offline(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.offline[code]
	return ok
}

// FetchHistory returns the price series for a 6-digit code. The series is
// guaranteed to satisfy the PriceSeries invariants and hold at least
// market.MinBars bars.
func (m *Manager) FetchHistory(ctx context.Context, code string) (*market.PriceSeries, error) {
	m.mu.RLock()
	if ps, ok := m.offline[code]; ok {
		m.mu.RUnlock()
		m.log.Debugw("using offline series", "code", code)
		return ps, nil
	}
	providers := make([]DataProvider, len(m.providers))
	copy(providers, m.providers)
	m.mu.RUnlock()

	if ps, ok := m.cache.Get(code); ok {
		return ps, nil
	}

	var lastErr error = ErrAllProvidersFailed
	for _, p := range providers {
		bars, err := p.FetchDailyBars(ctx, code, historyDays)
		if err != nil {
			m.log.Warnw("provider failed", "provider", p.Name(), "code", code, "err", err)
			lastErr = err
			continue
		}

		ps, err := buildSeries(code, bars)
		if err != nil {
			m.log.Warnw("provider returned unusable series",
				"provider", p.Name(), "code", code, "bars", len(bars), "err", err)
			lastErr = err
			continue
		}

		if p != providers[0] {
			m.log.Infow("using fallback provider", "provider", p.Name(), "code", code)
		}
		m.cache.Add(code, ps)
		return ps, nil
	}

	return nil, lastErr
}

// buildSeries normalizes raw bars into a validated ascending PriceSeries:
// deduplicated by date, sorted, rows with non-positive close/volume dropped.
func buildSeries(code string, bars []market.Bar) (*market.PriceSeries, error) {
	byDate := make(map[string]market.Bar, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || b.Volume <= 0 {
			continue
		}
		if _, seen := byDate[b.Date]; !seen {
			byDate[b.Date] = b
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	if len(dates) < market.MinBars {
		return nil, fmt.Errorf("%s: %d usable bars: %w", code, len(dates), market.ErrInsufficientHistory)
	}

	closes := make([]float64, len(dates))
	volumes := make([]float64, len(dates))
	for i, d := range dates {
		closes[i] = byDate[d].Close
		volumes[i] = byDate[d].Volume
	}

	return market.NewPriceSeries(closes, volumes, byDate[dates[len(dates)-1]].Open)
}

// IsUnavailable reports whether err means "no data for this symbol" rather
// than a hard failure worth surfacing.
func IsUnavailable(err error) bool {
	var pe *ProviderError
	return errors.Is(err, ErrAllProvidersFailed) ||
		errors.Is(err, market.ErrInsufficientHistory) ||
		errors.As(err, &pe)
}

// Names returns registered provider names, highest priority first.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return names
}

// InvalidateCache drops the memoized series for a code, e.g. after an
// offline upload replaces it.
func (m *Manager) InvalidateCache(code string) {
	m.cache.Remove(code)
}
