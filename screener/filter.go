// Package screener evaluates watchlist symbols against user-selected
// indicator conditions and produces match records and advisory
// recommendations.
package screener

import (
	"errors"
	"fmt"
	"strings"

	"krscreener/market"
)

// Condition names a screening condition from the fixed vocabulary.
type Condition string

const (
	RSIOversold     Condition = "rsi_oversold"
	RSIOverbought   Condition = "rsi_overbought"
	MACDGoldenCross Condition = "macd_golden_cross"
	MACDDeadCross   Condition = "macd_dead_cross"
	MACDAboveZero   Condition = "macd_above_zero"
	StrongBuy       Condition = "strong_buy"
	GapDown         Condition = "gap_down"
	VolumeSurge     Condition = "volume_surge"
)

// AllConditions lists the full condition vocabulary.
var AllConditions = []Condition{
	RSIOversold, RSIOverbought, MACDGoldenCross, MACDDeadCross,
	MACDAboveZero, StrongBuy, GapDown, VolumeSurge,
}

// Known reports whether c belongs to the condition vocabulary.
func (c Condition) Known() bool {
	for _, k := range AllConditions {
		if c == k {
			return true
		}
	}
	return false
}

const (
	// DefaultGapThreshold is the gap-down cutoff in percent (positive
	// magnitude of the drop).
	DefaultGapThreshold = 5.0
	// DefaultVolumeRatio is the latest-volume multiple of the trailing
	// 5-bar mean required for a surge.
	DefaultVolumeRatio = 2.0

	volumeWindow = 5
)

// FilterSpec selects conditions and their parameters. Zero-valued thresholds
// mean the documented defaults; parameters are optional overrides, never
// requirements.
type FilterSpec struct {
	Conditions   []Condition `json:"conditions"`
	GapThreshold float64     `json:"gap_threshold"`
	VolumeRatio  float64     `json:"volume_ratio"`
}

func (fs FilterSpec) gapThreshold() float64 {
	if fs.GapThreshold <= 0 {
		return DefaultGapThreshold
	}
	return fs.GapThreshold
}

func (fs FilterSpec) volumeRatio() float64 {
	if fs.VolumeRatio <= 0 {
		return DefaultVolumeRatio
	}
	return fs.VolumeRatio
}

func (fs FilterSpec) selected(c Condition) bool {
	for _, sel := range fs.Conditions {
		if sel == c {
			return true
		}
	}
	return false
}

// Validate rejects unknown condition names.
func (fs FilterSpec) Validate() error {
	for _, c := range fs.Conditions {
		if !c.Known() {
			return fmt.Errorf("unknown condition %q", c)
		}
	}
	return nil
}

// MatchRecord is one passing row of a screening run.
type MatchRecord struct {
	Sector    string   `json:"sector"`
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	ChangePct float64  `json:"change_pct"`
	RSI       float64  `json:"rsi"`
	MACD      float64  `json:"macd"`
	Signal    float64  `json:"signal"`
	Signals   []string `json:"signals"`
	Volume    float64  `json:"volume"`
}

// SignalText joins the fired sub-signal tags, with a placeholder when the
// passing conditions produced no descriptive text.
func (mr MatchRecord) SignalText() string {
	if len(mr.Signals) == 0 {
		return "-"
	}
	return strings.Join(mr.Signals, " | ")
}

// Rejection reasons. A symbol failing a selected condition, or missing the
// indicator a selected condition needs, rejects with one of these; the
// batch continues either way.
var (
	ErrConditionFailed      = errors.New("condition not met")
	ErrIndicatorUnavailable = errors.New("indicator unavailable for selected condition")
)

// Evaluate checks one symbol against every selected condition (AND
// semantics). Unselected conditions are not checked at all. A selected
// condition whose prerequisite indicator is unavailable fails closed.
func Evaluate(sym market.Symbol, ps *market.PriceSeries, spec FilterSpec) (*MatchRecord, error) {
	snap := market.Snapshot(ps)
	var signals []string

	if spec.selected(RSIOversold) {
		if !snap.HasRSI {
			return nil, fmt.Errorf("%s rsi: %w", sym.Code, ErrIndicatorUnavailable)
		}
		if snap.RSI > 30 {
			return nil, rejection(sym, RSIOversold)
		}
		signals = append(signals, "RSI 과매도")
	}

	if spec.selected(RSIOverbought) {
		if !snap.HasRSI {
			return nil, fmt.Errorf("%s rsi: %w", sym.Code, ErrIndicatorUnavailable)
		}
		if snap.RSI < 70 {
			return nil, rejection(sym, RSIOverbought)
		}
		signals = append(signals, "RSI 과매수")
	}

	if spec.selected(MACDGoldenCross) {
		if !snap.HasCross {
			return nil, fmt.Errorf("%s crossover: %w", sym.Code, ErrIndicatorUnavailable)
		}
		if snap.Cross != market.GoldenCross {
			return nil, rejection(sym, MACDGoldenCross)
		}
		signals = append(signals, "MACD 골든크로스")
	}

	if spec.selected(MACDDeadCross) {
		if !snap.HasCross {
			return nil, fmt.Errorf("%s crossover: %w", sym.Code, ErrIndicatorUnavailable)
		}
		if snap.Cross != market.DeadCross {
			return nil, rejection(sym, MACDDeadCross)
		}
		signals = append(signals, "MACD 데드크로스")
	}

	if spec.selected(MACDAboveZero) {
		if !snap.HasMACD {
			return nil, fmt.Errorf("%s macd: %w", sym.Code, ErrIndicatorUnavailable)
		}
		if snap.MACDLine <= 0 {
			return nil, rejection(sym, MACDAboveZero)
		}
		signals = append(signals, "MACD 0선 돌파")
	}

	if spec.selected(StrongBuy) {
		if !snap.HasRSI || !snap.HasCross {
			return nil, fmt.Errorf("%s rsi+crossover: %w", sym.Code, ErrIndicatorUnavailable)
		}
		if !(snap.RSI <= 30 && snap.Cross == market.GoldenCross) {
			return nil, rejection(sym, StrongBuy)
		}
		signals = append(signals, "⭐ 강력 매수 신호")
	}

	if spec.selected(GapDown) {
		gap := ps.GapPct()
		if gap > -spec.gapThreshold() {
			return nil, rejection(sym, GapDown)
		}
		signals = append(signals, fmt.Sprintf("갭하락 %.1f%%", gap))
	}

	if spec.selected(VolumeSurge) {
		mean, ok := trailingVolumeMean(ps)
		if !ok {
			return nil, fmt.Errorf("%s volume window: %w", sym.Code, ErrIndicatorUnavailable)
		}
		if ps.Volume < mean*spec.volumeRatio() {
			return nil, rejection(sym, VolumeSurge)
		}
		signals = append(signals, "거래량 급증")
	}

	return &MatchRecord{
		Sector:    sym.Sector,
		Code:      sym.Code,
		Name:      sym.Name,
		Price:     ps.Current,
		ChangePct: ps.ChangePct(),
		RSI:       snap.RSI,
		MACD:      snap.MACDLine,
		Signal:    snap.Signal,
		Signals:   signals,
		Volume:    ps.Volume,
	}, nil
}

func rejection(sym market.Symbol, c Condition) error {
	return fmt.Errorf("%s %s: %w", sym.Code, c, ErrConditionFailed)
}

// trailingVolumeMean averages the final volumeWindow bars.
func trailingVolumeMean(ps *market.PriceSeries) (float64, bool) {
	if len(ps.Volumes) < volumeWindow {
		return 0, false
	}
	sum := 0.0
	for _, v := range ps.Volumes[len(ps.Volumes)-volumeWindow:] {
		sum += v
	}
	return sum / volumeWindow, true
}
