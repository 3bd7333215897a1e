package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"krscreener/market"
)

// DaumProvider fetches daily candles from the Daum Finance JSON API. Used as
// a mirror when the Naver scrape is blocked.
type DaumProvider struct {
	client  *http.Client
	baseURL string
}

func NewDaumProvider() *DaumProvider {
	return &DaumProvider{
		client:  &http.Client{Timeout: fetchTimeout},
		baseURL: "https://finance.daum.net",
	}
}

func (dp *DaumProvider) Name() string { return "daum" }

func (dp *DaumProvider) Priority() int { return 2 }

type daumCandle struct {
	Date         string  `json:"date"` // "2024-01-05 00:00:00"
	OpeningPrice float64 `json:"openingPrice"`
	HighPrice    float64 `json:"highPrice"`
	LowPrice     float64 `json:"lowPrice"`
	TradePrice   float64 `json:"tradePrice"`
	CandleAccVol float64 `json:"candleAccTradeVolume"`
}

func (dp *DaumProvider) FetchDailyBars(ctx context.Context, code string, days int) ([]market.Bar, error) {
	url := fmt.Sprintf("%s/api/charts/A%s/days?limit=%d&adjusted=true", dp.baseURL, code, days)

	body, err := doWithRetry(ctx, dp.client, func() (*http.Request, error) {
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Referer", fmt.Sprintf("%s/quotes/A%s", dp.baseURL, code))
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		return req, nil
	})
	if err != nil {
		return nil, &ProviderError{Provider: dp.Name(), Err: err}
	}

	var result struct {
		Data []daumCandle `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ProviderError{Provider: dp.Name(), Err: fmt.Errorf("parse candles: %w", err)}
	}

	bars := make([]market.Bar, 0, len(result.Data))
	for _, c := range result.Data {
		date := c.Date
		if len(date) >= 10 {
			date = date[:10]
		}
		bars = append(bars, market.Bar{
			Date:   date,
			Open:   c.OpeningPrice,
			High:   c.HighPrice,
			Low:    c.LowPrice,
			Close:  c.TradePrice,
			Volume: c.CandleAccVol,
		})
	}

	return bars, nil
}
