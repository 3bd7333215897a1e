package symbols

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"krscreener/market"
)

// ResultLimit caps the number of candidates a resolve returns.
const ResultLimit = 20

// Resolver maps a company-name query to ranked symbol candidates. Sources
// are attempted in registration order; the first one yielding any rows is
// searched and its matches returned; results are never merged across
// sources.
type Resolver struct {
	sources []Source
	log     *zap.SugaredLogger
}

func NewResolver(log *zap.SugaredLogger, sources ...Source) *Resolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{sources: sources, log: log}
}

// Resolve returns up to ResultLimit candidates for query. An empty or
// whitespace-only query yields an empty result. Per-source failures advance
// to the next source; if every source fails the result is empty, never an
// error.
func (r *Resolver) Resolve(ctx context.Context, query string) []market.Symbol {
	q := Normalize(query)
	if q == "" {
		return nil
	}

	for _, src := range r.sources {
		rows, err := src.Candidates(ctx, query)
		if err != nil {
			r.log.Warnw("symbol source failed", "source", src.Name(), "err", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		r.log.Debugw("symbol source selected", "source", src.Name(), "rows", len(rows))
		return match(rows, q)
	}

	return nil
}

// match returns all exact (normalized) name matches, or substring matches in
// source order when there is no exact match. Multiple listings may share a
// display name, so exact matches are not collapsed.
func match(rows []market.Symbol, q string) []market.Symbol {
	var exact, part []market.Symbol
	for _, s := range rows {
		n := Normalize(s.Name)
		if n == q {
			exact = append(exact, s)
		} else if strings.Contains(n, q) {
			part = append(part, s)
		}
	}

	if len(exact) > 0 {
		return truncate(exact)
	}
	return truncate(part)
}

func truncate(rows []market.Symbol) []market.Symbol {
	if len(rows) > ResultLimit {
		return rows[:ResultLimit]
	}
	return rows
}
