package symbols

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"krscreener/market"
)

// NaverSearchSource queries the Naver Finance autocomplete endpoint for a
// name, returning live matches directly instead of a full master list.
type NaverSearchSource struct {
	client  *http.Client
	baseURL string
}

func NewNaverSearchSource() *NaverSearchSource {
	return &NaverSearchSource{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://ac.finance.naver.com",
	}
}

func (n *NaverSearchSource) Name() string { return "naver-search" }

func (n *NaverSearchSource) Candidates(ctx context.Context, query string) ([]market.Symbol, error) {
	u := fmt.Sprintf("%s/ac?q=%s&q_enc=utf-8&st=111&r_format=json&r_enc=utf-8&r_lt=111&t_koreng=1",
		n.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", "https://finance.naver.com/")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("autocomplete status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseAutocomplete(body)
}

// parseAutocomplete unpacks the nested items payload: each item is a list of
// fields and each field a list of strings, with code first and name second.
func parseAutocomplete(body []byte) ([]market.Symbol, error) {
	var result struct {
		Items [][][][]string `json:"items"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse autocomplete: %w", err)
	}

	var rows []market.Symbol
	for _, group := range result.Items {
		for _, item := range group {
			if len(item) < 2 || len(item[0]) == 0 || len(item[1]) == 0 {
				continue
			}
			rows = append(rows, market.Symbol{
				Code:   NormalizeCode(item[0][0]),
				Name:   item[1][0],
				Sector: market.DefaultSector,
			})
		}
	}
	return rows, nil
}
