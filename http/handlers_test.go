package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"krscreener/auth"
	"krscreener/config"
	"krscreener/market/providers"
	"krscreener/screener"
	"krscreener/symbols"
)

const testPassword = "screener-test"

type testEnv struct {
	srv   *httptest.Server
	api   *Server
	token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	gate, err := auth.NewGate(auth.HashPassword(testPassword))
	if err != nil {
		t.Fatal(err)
	}

	uploaded := symbols.NewStaticSource("uploaded", nil)
	reslv := symbols.NewResolver(nil, uploaded, symbols.EmbeddedSource{})

	history := providers.NewManager(nil)
	session := screener.NewSession(history, nil)
	session.SetDelay(0)

	s := NewServer(cfg, nil, gate, reslv, history, session, uploaded)
	srv := httptest.NewServer(s.server.Handler)
	t.Cleanup(srv.Close)

	env := &testEnv{srv: srv, api: s}
	env.token = env.login(t, testPassword)
	return env
}

func (e *testEnv) login(t *testing.T, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"password": password})
	resp, err := http.Post(e.srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var out map[string]string
	json.NewDecoder(resp.Body).Decode(&out)
	return out["token"]
}

func (e *testEnv) do(t *testing.T, method, path string, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func urlQuery(s string) string {
	return url.QueryEscape(s)
}

// flat 40-bar OHLCV upload with a configurable final open.
func ohlcvCSV(lastOpen float64) string {
	var b strings.Builder
	b.WriteString("날짜,시가,종가,거래량\n")
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		open := 10000.0
		if i == 39 && lastOpen > 0 {
			open = lastOpen
		}
		fmt.Fprintf(&b, "%s,%.0f,10000,100000\n", day.Format("2006-01-02"), open)
		day = day.AddDate(0, 0, 1)
	}
	return b.String()
}

func TestLoginRequired(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/symbols/search?q=삼성전자", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated search status = %d", resp.StatusCode)
	}

	body, _ := json.Marshal(map[string]string{"password": "wrong"})
	badResp, err := http.Post(env.srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	badResp.Body.Close()
	if badResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d", badResp.StatusCode)
	}
}

func TestSymbolSearch(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/symbols/search?q="+urlQuery("삼성전자"), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	var out struct {
		Results []struct {
			Code string `json:"code"`
		} `json:"results"`
	}
	decodeJSON(t, resp, &out)
	if len(out.Results) != 1 || out.Results[0].Code != "005930" {
		t.Errorf("results = %+v", out.Results)
	}
}

func TestWatchlistCRUD(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/watchlist",
		`{"code":"5930","name":"삼성전자","sector":"반도체"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add status = %d", resp.StatusCode)
	}

	// Short code was zero-padded; the same symbol again conflicts.
	resp = env.do(t, http.MethodPost, "/api/watchlist",
		`{"code":"005930","name":"삼성전자"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate add status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/api/watchlist/005930", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("remove status = %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodDelete, "/api/watchlist/005930", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second remove status = %d", resp.StatusCode)
	}
}

func TestUploadScreenExport(t *testing.T) {
	env := newTestEnv(t)

	// 6% gap down in the uploaded series.
	resp := env.do(t, http.MethodPost, "/api/uploads/prices/000100", ohlcvCSV(9400))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var up struct {
		Bars int `json:"bars"`
	}
	decodeJSON(t, resp, &up)
	if up.Bars != 40 {
		t.Errorf("uploaded bars = %d", up.Bars)
	}

	resp = env.do(t, http.MethodPost, "/api/watchlist", `{"code":"000100","name":"테스트제약"}`)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/screen", `{"conditions":["gap_down"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("screen status = %d", resp.StatusCode)
	}
	var out struct {
		Results  []screener.MatchRecord `json:"results"`
		Warnings []screener.Warning     `json:"warnings"`
	}
	decodeJSON(t, resp, &out)
	if len(out.Results) != 1 || out.Results[0].Code != "000100" {
		t.Fatalf("screen results = %+v", out.Results)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("warnings = %+v", out.Warnings)
	}

	resp = env.do(t, http.MethodGet, "/api/screen/export", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	records, err := screener.ParseCSV(resp.Body)
	if err != nil {
		t.Fatalf("export did not parse: %v", err)
	}
	if len(records) != 1 || records[0].Code != "000100" {
		t.Errorf("exported records = %+v", records)
	}
}

func TestScreenWarnsOnMissingData(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/watchlist", `{"code":"000200","name":"데이터없음"}`)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/screen", `{"conditions":["rsi_oversold"]}`)
	var out struct {
		Results  []screener.MatchRecord `json:"results"`
		Warnings []screener.Warning     `json:"warnings"`
	}
	decodeJSON(t, resp, &out)
	if len(out.Results) != 0 {
		t.Errorf("results = %+v", out.Results)
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Code != "000200" {
		t.Fatalf("warnings = %+v", out.Warnings)
	}
}

func TestScreenRejectsUnknownConditionOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/screen", `{"conditions":["bogus"]}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown condition status = %d", resp.StatusCode)
	}
}

func TestUploadMasterFeedsSearch(t *testing.T) {
	env := newTestEnv(t)

	master := "회사명,종목코드,업종\n한빛소프트,45,게임\n"
	resp := env.do(t, http.MethodPost, "/api/uploads/master", master)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("master upload status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/symbols/search?q="+urlQuery("한빛소프트"), "")
	var out struct {
		Results []struct {
			Code string `json:"code"`
		} `json:"results"`
	}
	decodeJSON(t, resp, &out)
	if len(out.Results) != 1 || out.Results[0].Code != "000045" {
		t.Errorf("results = %+v", out.Results)
	}
}

func TestUploadRejectsShortHistory(t *testing.T) {
	env := newTestEnv(t)

	var b strings.Builder
	b.WriteString("종가,거래량\n")
	for i := 0; i < 20; i++ {
		b.WriteString("10000,100000\n")
	}
	resp := env.do(t, http.MethodPost, "/api/uploads/prices/000300", b.String())
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("short upload status = %d", resp.StatusCode)
	}
}

// Master uploads and symbol searches run on concurrent handlers; this must
// stay clean under -race.
func TestConcurrentMasterUploadAndSearch(t *testing.T) {
	env := newTestEnv(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			master := fmt.Sprintf("회사명,종목코드,업종\n한빛소프트,%d,게임\n", i+1)
			resp := env.do(t, http.MethodPost, "/api/uploads/master", master)
			resp.Body.Close()
		}
	}()

	for i := 0; i < 20; i++ {
		resp := env.do(t, http.MethodGet, "/api/symbols/search?q="+urlQuery("한빛소프트"), "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("search status = %d", resp.StatusCode)
		}
	}
	<-done
}

func TestExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	env.api.mu.Lock()
	env.api.tokens[env.token] = time.Now().Add(-time.Minute)
	env.api.mu.Unlock()

	resp := env.do(t, http.MethodGet, "/api/watchlist", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", resp.StatusCode)
	}

	// A fresh login sweeps expired entries out of the table.
	env.token = env.login(t, testPassword)
	env.api.mu.RLock()
	n := len(env.api.tokens)
	env.api.mu.RUnlock()
	if n != 1 {
		t.Errorf("token table size = %d after sweep, want 1", n)
	}

	resp = env.do(t, http.MethodGet, "/api/watchlist", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("fresh token status = %d", resp.StatusCode)
	}
}
