// Package symbols resolves free-text company-name queries to canonical
// (code, name, sector) tuples, trying candidate sources in priority order.
package symbols

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"krscreener/market"
)

// Source supplies symbol candidates for a query. Master-list sources return
// their full table regardless of the query; search-backed sources return
// query matches directly. The resolver applies exact/substring matching on
// top either way.
type Source interface {
	Name() string
	Candidates(ctx context.Context, query string) ([]market.Symbol, error)
}

// StaticSource serves an in-memory master list, e.g. one uploaded during
// the session. SetRows may race with resolver lookups on the HTTP surface,
// so access is guarded internally.
type StaticSource struct {
	name string

	mu   sync.RWMutex
	rows []market.Symbol
}

func NewStaticSource(name string, rows []market.Symbol) *StaticSource {
	return &StaticSource{name: name, rows: rows}
}

func (s *StaticSource) Name() string { return s.name }

// SetRows replaces the whole table. Callers must not mutate rows afterwards.
func (s *StaticSource) SetRows(rows []market.Symbol) {
	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
}

func (s *StaticSource) Candidates(_ context.Context, _ string) ([]market.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows, nil
}

// Normalize prepares a name for comparison: trims, removes internal spaces
// and uppercases.
func Normalize(name string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

var digitsRe = regexp.MustCompile(`\d+`)

// NormalizeCode extracts the digits of a code field and zero-pads to the
// 6-digit KRX form.
func NormalizeCode(raw string) string {
	code := strings.TrimSpace(raw)
	if d := digitsRe.FindString(code); d != "" {
		code = d
	}
	for len(code) < 6 {
		code = "0" + code
	}
	return code
}
