package symbols

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"krscreener/market"
)

// KRXSource downloads the full KRX listed-company master via the exchange's
// two-step OTP flow (GenerateOTP, then download_csv). The CSV payload is
// EUC-KR encoded. Results are memoized for a day.
type KRXSource struct {
	client  *http.Client
	baseURL string

	mu       sync.Mutex
	rows     []market.Symbol
	loadedAt time.Time
}

const (
	// minKRXRows guards against a near-empty partial fetch being mistaken
	// for the real master list.
	minKRXRows = 100
	krxMemoTTL = 24 * time.Hour
)

func NewKRXSource() *KRXSource {
	return &KRXSource{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: "http://data.krx.co.kr",
	}
}

func (k *KRXSource) Name() string { return "krx" }

func (k *KRXSource) Candidates(ctx context.Context, _ string) ([]market.Symbol, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.rows != nil && time.Since(k.loadedAt) < krxMemoTTL {
		return k.rows, nil
	}

	rows, err := k.download(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) < minKRXRows {
		return nil, fmt.Errorf("krx master suspiciously small: %d rows", len(rows))
	}

	k.rows = rows
	k.loadedAt = time.Now()
	return rows, nil
}

func (k *KRXSource) download(ctx context.Context) ([]market.Symbol, error) {
	otp, err := k.generateOTP(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	form := url.Values{"code": {otp}}
	req, err := http.NewRequestWithContext(ctx, "POST",
		k.baseURL+"/comm/fileDn/download_csv/download.cmd",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	k.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download status %d", resp.StatusCode)
	}

	utf8Body := transform.NewReader(resp.Body, korean.EUCKR.NewDecoder())
	return parseKRXCSV(utf8Body)
}

func (k *KRXSource) generateOTP(ctx context.Context) (string, error) {
	form := url.Values{
		"mktId":       {"ALL"},
		"share":       {"1"},
		"csvxls_isNo": {"false"},
		"name":        {"fileDown"},
		"url":         {"dbms/MDC/STAT/standard/MDCSTAT01901"},
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		k.baseURL+"/comm/fileDn/GenerateOTP/generate.cmd",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	k.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	otp := strings.TrimSpace(string(body))
	if otp == "" {
		return "", fmt.Errorf("empty otp response")
	}
	return otp, nil
}

func (k *KRXSource) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Referer", "http://data.krx.co.kr/")
}

// parseKRXCSV maps the exchange CSV (한글 종목약명, 단축코드, 업종명) to
// symbols with keyword-classified sectors, deduplicated by code.
func parseKRXCSV(r io.Reader) ([]market.Symbol, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	nameIdx, codeIdx, indIdx := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "한글 종목약명":
			nameIdx = i
		case "단축코드":
			codeIdx = i
		case "업종명":
			indIdx = i
		}
	}
	if nameIdx < 0 || codeIdx < 0 {
		return nil, fmt.Errorf("krx csv missing name/code columns")
	}

	seen := make(map[string]bool)
	var rows []market.Symbol
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) <= nameIdx || len(rec) <= codeIdx {
			continue
		}

		name := strings.TrimSpace(rec[nameIdx])
		code := NormalizeCode(rec[codeIdx])
		if name == "" || code == "000000" {
			continue
		}
		if seen[code] {
			continue
		}
		seen[code] = true

		industry := ""
		if indIdx >= 0 && len(rec) > indIdx {
			industry = strings.TrimSpace(rec[indIdx])
		}
		rows = append(rows, market.Symbol{
			Code:   code,
			Name:   name,
			Sector: ClassifySector(name, industry),
		})
	}
	return rows, nil
}

var sectorKeywords = []struct {
	sector   string
	keywords []string
}{
	{"AI", []string{"NAVER", "네이버", "카카오", "엔씨소프트", "크래프톤", "펄어비스", "컴투스", "위메이드", "AI", "인공지능", "빅데이터", "클라우드"}},
	{"의약품", []string{"바이오", "제약", "셀트리온", "삼성바이오", "PHARM", "메디", "의약", "헬스케어", "알테오젠", "휴젤", "유한양행", "한미약품", "종근당", "녹십자", "파마"}},
	{"반도체", []string{"삼성전자", "하이닉스", "DB하이텍", "한미반도체", "반도체", "주성엔지니어링", "원익IPS", "유진테크", "HPSP"}},
	{"2차전지", []string{"LG에너지솔루션", "삼성SDI", "포스코퓨처엠", "에코프로", "2차전지", "배터리", "양극재", "음극재"}},
	{"로봇", []string{"로봇", "레인보우로보틱스", "로보티즈"}},
	{"우주항공", []string{"에어로스페이스", "인텔리안테크", "LIG넥스원", "쎄트렉아이", "항공", "우주", "위성"}},
}

// ClassifySector assigns a coarse theme sector by company-name/industry
// keywords, falling back to the raw industry name.
func ClassifySector(name, industry string) string {
	upper := strings.ToUpper(name)
	for _, sk := range sectorKeywords {
		for _, kw := range sk.keywords {
			if strings.Contains(upper, strings.ToUpper(kw)) || (industry != "" && strings.Contains(industry, kw)) {
				return sk.sector
			}
		}
	}
	if industry != "" {
		return industry
	}
	return market.DefaultSector
}
