package screener

import (
	"fmt"

	"krscreener/market"
)

// Stance is the coarse direction of a recommendation.
type Stance string

const (
	StanceBuy  Stance = "buy"
	StanceSell Stance = "sell"
	StanceHold Stance = "hold"
)

// Korean recommendation labels, matching the report table.
const (
	RecStrongBuy    = "적극 매수"
	RecConsiderBuy  = "매수 고려"
	RecHoldAdd      = "보유/추가 매수"
	RecConsiderSell = "매도 고려"
	RecWait         = "관망"
)

// Advice is the advisory scorer's output: a recommendation label plus every
// textual signal tag that fired. Bullish and bearish tags may coexist even
// when the final recommendation reflects only the bearish override.
type Advice struct {
	Sector         string                `json:"sector"`
	Code           string                `json:"code"`
	Name           string                `json:"name"`
	Current        float64               `json:"current"`
	ChangePct      float64               `json:"change_pct"`
	RSI            float64               `json:"rsi"`
	MACD           float64               `json:"macd"`
	Signal         float64               `json:"signal"`
	Cross          market.CrossoverState `json:"macd_cross"`
	GapPct         float64               `json:"gap_pct"`
	Volume         float64               `json:"volume"`
	Signals        []string              `json:"signals"`
	Recommendation string                `json:"recommendation"`
	Stance         Stance                `json:"stance"`
}

const (
	adviceGapTag = -3.0 // informational gap-down tag threshold, percent
	adviceVolume = 2.0  // informational volume-surge multiple
)

// Advise produces a recommendation from the indicators alone, without a
// user-selected condition set. Bullish labels follow a fixed priority;
// bearish overrides are applied afterwards and replace the label, but their
// tags are appended alongside any bullish ones. Requires RSI and MACD to be
// computable.
func Advise(sym market.Symbol, ps *market.PriceSeries) (*Advice, error) {
	snap := market.Snapshot(ps)
	if !snap.HasRSI {
		return nil, fmt.Errorf("%s rsi: %w", sym.Code, ErrIndicatorUnavailable)
	}
	if !snap.HasMACD {
		return nil, fmt.Errorf("%s macd: %w", sym.Code, ErrIndicatorUnavailable)
	}

	gap := ps.GapPct()
	surge := false
	if mean, ok := trailingVolumeMean(ps); ok {
		surge = ps.Volume >= mean*adviceVolume
	}

	var signals []string
	rec := RecWait
	stance := StanceHold

	// Bullish labeling, strongest first.
	switch {
	case snap.RSI <= 30 && snap.Cross == market.GoldenCross:
		signals = append(signals, "⭐ 강력 매수 신호 (RSI 과매도 + 골든크로스)")
		rec, stance = RecStrongBuy, StanceBuy
	case snap.RSI <= 30:
		signals = append(signals, "RSI 과매도 (반등 가능성)")
		rec, stance = RecConsiderBuy, StanceBuy
	case snap.Cross == market.GoldenCross:
		signals = append(signals, "MACD 골든크로스 (상승 전환)")
		rec, stance = RecConsiderBuy, StanceBuy
	case snap.MACDLine > 0 && snap.RSI < 70:
		signals = append(signals, "상승 추세 지속 (MACD > 0)")
		rec, stance = RecHoldAdd, StanceBuy
	}

	// Bearish overrides replace the recommendation; tags coexist.
	if snap.RSI >= 70 {
		signals = append(signals, "RSI 과매수 (조정 가능성)")
		rec, stance = RecConsiderSell, StanceSell
	}
	if snap.Cross == market.DeadCross {
		signals = append(signals, "MACD 데드크로스 (하락 전환)")
		rec, stance = RecConsiderSell, StanceSell
	}

	// Informational tags.
	if gap < adviceGapTag {
		signals = append(signals, fmt.Sprintf("갭 하락 %.1f%%", gap))
	}
	if surge {
		signals = append(signals, "거래량 급증 (최근 5일 평균 대비 2배↑)")
	}
	if snap.MACDLine > 0 {
		signals = append(signals, "MACD 0선 상단 (강세)")
	}

	return &Advice{
		Sector:         sym.Sector,
		Code:           sym.Code,
		Name:           sym.Name,
		Current:        ps.Current,
		ChangePct:      ps.ChangePct(),
		RSI:            snap.RSI,
		MACD:           snap.MACDLine,
		Signal:         snap.Signal,
		Cross:          snap.Cross,
		GapPct:         gap,
		Volume:         ps.Volume,
		Signals:        signals,
		Recommendation: rec,
		Stance:         stance,
	}, nil
}
