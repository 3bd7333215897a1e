package providers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"krscreener/market"
)

// NaverProvider scrapes the daily quote table from Naver Finance
// (item/sise_day). Pages are EUC-KR encoded HTML with ten bars per page.
type NaverProvider struct {
	client  *http.Client
	baseURL string
}

const naverRowsPerPage = 10

func NewNaverProvider() *NaverProvider {
	return &NaverProvider{
		client:  &http.Client{Timeout: fetchTimeout},
		baseURL: "https://finance.naver.com",
	}
}

func (np *NaverProvider) Name() string { return "naver" }

func (np *NaverProvider) Priority() int { return 3 }

func (np *NaverProvider) FetchDailyBars(ctx context.Context, code string, days int) ([]market.Bar, error) {
	pages := (days + naverRowsPerPage - 1) / naverRowsPerPage

	var bars []market.Bar
	for page := 1; page <= pages; page++ {
		pageBars, err := np.fetchPage(ctx, code, page)
		if err != nil {
			// A failed page aborts the sequence; already-fetched pages are
			// kept so the manager can still judge the series length.
			if len(bars) == 0 {
				return nil, &ProviderError{Provider: np.Name(), Err: err}
			}
			break
		}
		if len(pageBars) == 0 {
			break // end of available history
		}
		bars = append(bars, pageBars...)
	}

	return bars, nil
}

func (np *NaverProvider) fetchPage(ctx context.Context, code string, page int) ([]market.Bar, error) {
	url := fmt.Sprintf("%s/item/sise_day.naver?code=%s&page=%d", np.baseURL, code, page)

	body, err := doWithRetry(ctx, np.client, func() (*http.Request, error) {
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		req.Header.Set("Referer", "https://finance.naver.com/")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("euc-kr decode: %w", err)
	}

	return parseSiseDay(string(decoded))
}

var (
	siseSpanRe = regexp.MustCompile(`<span class="tah[^"]*">\s*([^<]+?)\s*</span>`)
	siseDateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)
)

// parseSiseDay extracts daily bars from a sise_day HTML page. Each data row
// carries seven tah spans: date, close, day-over-day diff, open, high, low,
// volume. The diff column is discarded.
func parseSiseDay(html string) ([]market.Bar, error) {
	matches := siseSpanRe.FindAllStringSubmatch(html, -1)

	var bars []market.Bar
	var row []string
	flush := func() {
		if len(row) < 7 {
			return
		}
		bar, err := siseRowToBar(row)
		if err == nil {
			bars = append(bars, bar)
		}
	}

	for _, m := range matches {
		val := strings.TrimSpace(m[1])
		if siseDateRe.MatchString(val) {
			flush()
			row = []string{val}
			continue
		}
		if len(row) > 0 {
			row = append(row, val)
		}
	}
	flush()

	return bars, nil
}

func siseRowToBar(row []string) (market.Bar, error) {
	date, err := time.Parse("2006.01.02", row[0])
	if err != nil {
		return market.Bar{}, err
	}

	nums := make([]float64, 6)
	for i, raw := range row[1:7] {
		n, err := parseKoreanNumber(raw)
		if err != nil {
			return market.Bar{}, err
		}
		nums[i] = n
	}

	return market.Bar{
		Date:   date.Format("2006-01-02"),
		Close:  nums[0],
		Open:   nums[2],
		High:   nums[3],
		Low:    nums[4],
		Volume: nums[5],
	}, nil
}

func parseKoreanNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}
