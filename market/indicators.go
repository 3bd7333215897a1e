package market

// CrossoverState is a single-bar MACD/signal transition event.
type CrossoverState string

const (
	CrossNone   CrossoverState = ""
	GoldenCross CrossoverState = "골든크로스"
	DeadCross   CrossoverState = "데드크로스"
)

// IndicatorSnapshot is a derived view over a PriceSeries at its final point.
// Each value carries an availability flag; a series shorter than an
// indicator's window leaves that indicator unavailable.
type IndicatorSnapshot struct {
	RSI      float64
	HasRSI   bool
	MACDLine float64
	Signal   float64
	Hist     float64
	HasMACD  bool
	Cross    CrossoverState
	HasCross bool
}

// Snapshot computes all indicators for a price series. Cheap enough to
// recompute on every evaluation; never cached.
func Snapshot(ps *PriceSeries) IndicatorSnapshot {
	var snap IndicatorSnapshot
	snap.RSI, snap.HasRSI = RSI(ps.Closes, 14)
	snap.MACDLine, snap.Signal, snap.Hist, snap.HasMACD = MACD(ps.Closes, 12, 26, 9)
	snap.Cross, snap.HasCross = Crossover(ps.Closes)
	return snap
}

// RSI calculates the Relative Strength Index over the trailing window using a
// simple rolling mean of gains and losses. Needs period+1 closes. An all-gain
// window returns exactly 100.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	gains := 0.0
	losses := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		if diff >= 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// MACD calculates the final MACD line, signal line and histogram values.
// Needs slow+signal closes.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist float64, ok bool) {
	if len(closes) < slow+signal {
		return 0, 0, 0, false
	}

	macdSeries, sigSeries := macdSeries(closes, fast, slow, signal)
	macd = macdSeries[len(macdSeries)-1]
	sig = sigSeries[len(sigSeries)-1]
	return macd, sig, macd - sig, true
}

// Crossover reports the MACD(12/26/9) crossover event at the final bar.
// Needs MinBars closes. Equality on the previous bar is grouped with the
// "crossed from" side, so a flat run followed by a strict break fires exactly
// one of the two events.
func Crossover(closes []float64) (CrossoverState, bool) {
	if len(closes) < MinBars {
		return CrossNone, false
	}
	macd, sig := macdSeries(closes, 12, 26, 9)
	return crossoverAt(macd, sig, len(macd)-1), true
}

func crossoverAt(macd, sig []float64, i int) CrossoverState {
	prevMACD, curMACD := macd[i-1], macd[i]
	prevSig, curSig := sig[i-1], sig[i]

	if prevMACD <= prevSig && curMACD > curSig {
		return GoldenCross
	}
	if prevMACD >= prevSig && curMACD < curSig {
		return DeadCross
	}
	return CrossNone
}

func macdSeries(closes []float64, fast, slow, signal int) (macd, sig []float64) {
	emaFast := calculateEMA(closes, fast)
	emaSlow := calculateEMA(closes, slow)

	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	return macd, calculateEMA(macd, signal)
}

// calculateEMA computes the recursive exponential moving average seeded at
// the first value, so only past and current bars feed each point.
func calculateEMA(data []float64, period int) []float64 {
	ema := make([]float64, len(data))
	if len(data) == 0 {
		return ema
	}

	k := 2.0 / float64(period+1)
	ema[0] = data[0]
	for i := 1; i < len(data); i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}
	return ema
}
