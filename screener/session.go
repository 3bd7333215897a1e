package screener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"krscreener/market"
)

// HistoryProvider yields the price series for a symbol code.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, code string) (*market.PriceSeries, error)
}

// DefaultDelay is the politeness pause between symbols in a batch, keeping
// the scraped upstream from rate-limiting us. Not a correctness requirement.
const DefaultDelay = 100 * time.Millisecond

// Warning is a per-symbol degradation note from a batch run.
type Warning struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Progress reports batch advancement after each symbol.
type Progress struct {
	Index  int    `json:"index"` // 1-based
	Total  int    `json:"total"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// Session is the explicit per-user state object: the watchlist and the last
// screening results. The core holds no global mutable state; callers own the
// session lifetime.
type Session struct {
	mu        sync.RWMutex
	watchlist []market.Symbol

	provider HistoryProvider
	delay    time.Duration
	log      *zap.SugaredLogger

	// OnProgress, when set, is called after every symbol in a batch run.
	OnProgress func(Progress)
}

func NewSession(provider HistoryProvider, log *zap.SugaredLogger) *Session {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		provider: provider,
		delay:    DefaultDelay,
		log:      log,
	}
}

// SetDelay tunes the inter-symbol pause; zero disables it (non-scraping
// sources).
func (s *Session) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Add appends a symbol to the watchlist. Duplicate codes are rejected.
func (s *Session) Add(sym market.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchlist {
		if w.Code == sym.Code {
			return fmt.Errorf("symbol %s already in watchlist", sym.Code)
		}
	}
	s.watchlist = append(s.watchlist, sym)
	return nil
}

// Remove deletes a symbol by code.
func (s *Session) Remove(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.watchlist {
		if w.Code == code {
			s.watchlist = append(s.watchlist[:i], s.watchlist[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the watchlist.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchlist = nil
}

// Watchlist returns a copy of the current watchlist.
func (s *Session) Watchlist() []market.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.Symbol, len(s.watchlist))
	copy(out, s.watchlist)
	return out
}

// Screen runs the fetch-then-filter cycle over the whole watchlist, strictly
// sequentially, with cancellation checked between symbols. Per-symbol
// failures degrade to warnings; the batch never aborts on one symbol.
func (s *Session) Screen(ctx context.Context, spec FilterSpec) ([]MatchRecord, []Warning, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	symbols := s.Watchlist()
	s.mu.RLock()
	delay := s.delay
	s.mu.RUnlock()

	var results []MatchRecord
	var warnings []Warning

	for i, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return results, warnings, err
		}
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}

		passed := false
		ps, err := s.provider.FetchHistory(ctx, sym.Code)
		if err != nil {
			s.log.Warnw("no data for symbol", "code", sym.Code, "name", sym.Name, "err", err)
			warnings = append(warnings, Warning{
				Code: sym.Code, Name: sym.Name,
				Message: warningMessage(err),
			})
		} else {
			rec, err := Evaluate(sym, ps, spec)
			switch {
			case err == nil:
				results = append(results, *rec)
				passed = true
			case errors.Is(err, ErrIndicatorUnavailable):
				warnings = append(warnings, Warning{
					Code: sym.Code, Name: sym.Name,
					Message: "지표 계산 불가 (데이터 부족)",
				})
			}
			// ErrConditionFailed is the normal no-match case: no warning.
		}

		if s.OnProgress != nil {
			s.OnProgress(Progress{
				Index: i + 1, Total: len(symbols),
				Code: sym.Code, Name: sym.Name, Passed: passed,
			})
		}
	}

	return results, warnings, nil
}

// Analyze fetches and scores a single symbol.
func (s *Session) Analyze(ctx context.Context, sym market.Symbol) (*Advice, error) {
	ps, err := s.provider.FetchHistory(ctx, sym.Code)
	if err != nil {
		return nil, err
	}
	return Advise(sym, ps)
}

func warningMessage(err error) string {
	if errors.Is(err, market.ErrInsufficientHistory) {
		return "시세 이력 부족 (35봉 미만)"
	}
	return "시세 데이터 없음 (라이브 차단 또는 업로드 필요)"
}
