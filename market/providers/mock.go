package providers

import (
	"context"
	"math"
	"time"

	"krscreener/market"
)

// MockProvider returns deterministic synthetic bars for development and
// tests. The price path is a fixed sine wave around a per-code base price.
type MockProvider struct {
	BasePrice float64
	Err       error        // forces every fetch to fail when set
	Bars      []market.Bar // overrides generation when set
	Calls     int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{BasePrice: 50000}
}

func (mp *MockProvider) Name() string { return "mock" }

func (mp *MockProvider) Priority() int { return 0 }

func (mp *MockProvider) FetchDailyBars(_ context.Context, code string, days int) ([]market.Bar, error) {
	mp.Calls++
	if mp.Err != nil {
		return nil, &ProviderError{Provider: mp.Name(), Err: mp.Err}
	}
	if mp.Bars != nil {
		return mp.Bars, nil
	}
	return GenerateBars(mp.BasePrice, days), nil
}

// GenerateBars builds an ascending synthetic daily series ending today.
func GenerateBars(basePrice float64, days int) []market.Bar {
	bars := make([]market.Bar, days)
	start := time.Now().AddDate(0, 0, -days)
	for i := 0; i < days; i++ {
		p := basePrice * (1 + 0.03*math.Sin(float64(i)/5))
		bars[i] = market.Bar{
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 + float64(i%7)*50000,
		}
	}
	return bars
}
