package market

import "fmt"

// Symbol identifies a tradable KRX equity.
type Symbol struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// DefaultSector is used when no sector classification is available.
const DefaultSector = "기타"

// Bar is a single daily candlestick as returned by a data provider.
type Bar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MinBars is the minimum series length for the slowest indicator (MACD 26+9).
const MinBars = 35

// PriceSeries holds the per-symbol daily close/volume history driving all
// indicator math, plus a scalar snapshot of the most recent bar.
type PriceSeries struct {
	Closes  []float64 `json:"close_prices"`
	Volumes []float64 `json:"volumes"`

	Current   float64 `json:"current"`
	Open      float64 `json:"open"`
	PrevClose float64 `json:"prev_close"`
	Volume    float64 `json:"volume"`
}

// NewPriceSeries validates and constructs a PriceSeries. Closes and volumes
// must be chronological ascending, equal length, and strictly positive; the
// scalar snapshot is derived from the tail. A zero open falls back to the
// previous close (uploads without an open column).
func NewPriceSeries(closes, volumes []float64, open float64) (*PriceSeries, error) {
	if len(closes) != len(volumes) {
		return nil, fmt.Errorf("closes/volumes length mismatch: %d != %d", len(closes), len(volumes))
	}
	if len(closes) < 2 {
		return nil, fmt.Errorf("price series needs at least 2 bars, got %d", len(closes))
	}
	for i := range closes {
		if closes[i] <= 0 {
			return nil, fmt.Errorf("non-positive close at index %d: %v", i, closes[i])
		}
		if volumes[i] <= 0 {
			return nil, fmt.Errorf("non-positive volume at index %d: %v", i, volumes[i])
		}
	}

	ps := &PriceSeries{
		Closes:    closes,
		Volumes:   volumes,
		Current:   closes[len(closes)-1],
		PrevClose: closes[len(closes)-2],
		Volume:    volumes[len(volumes)-1],
		Open:      open,
	}
	if ps.Open == 0 {
		ps.Open = ps.PrevClose
	}
	return ps, nil
}

// Len returns the number of bars in the series.
func (ps *PriceSeries) Len() int { return len(ps.Closes) }

// ChangePct is the percent change of the latest close vs the previous close.
func (ps *PriceSeries) ChangePct() float64 {
	return (ps.Current - ps.PrevClose) / ps.PrevClose * 100
}

// GapPct is the percent gap of the latest open vs the previous close.
func (ps *PriceSeries) GapPct() float64 {
	return (ps.Open - ps.PrevClose) / ps.PrevClose * 100
}
