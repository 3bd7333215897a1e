package symbols

import (
	"context"

	"krscreener/market"
)

// EmbeddedSource is the last-resort hard-coded mini table guaranteeing the
// resolver never fully fails.
type EmbeddedSource struct{}

func (EmbeddedSource) Name() string { return "embedded" }

func (EmbeddedSource) Candidates(_ context.Context, _ string) ([]market.Symbol, error) {
	return embeddedSymbols, nil
}

var embeddedSymbols = []market.Symbol{
	{Code: "005930", Name: "삼성전자", Sector: "기타"},
	{Code: "000660", Name: "SK하이닉스", Sector: "기타"},
	{Code: "035420", Name: "NAVER", Sector: "AI"},
	{Code: "035420", Name: "네이버", Sector: "AI"},
	{Code: "035720", Name: "카카오", Sector: "AI"},
	{Code: "068270", Name: "셀트리온", Sector: "의약품"},
	{Code: "207940", Name: "삼성바이오로직스", Sector: "의약품"},
	{Code: "005380", Name: "현대차", Sector: "기타"},
	{Code: "000270", Name: "기아", Sector: "기타"},
	{Code: "090710", Name: "휴림로봇", Sector: "로봇"},
}
