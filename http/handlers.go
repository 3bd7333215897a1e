package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"krscreener/market"
	"krscreener/pipeline"
	"krscreener/screener"
	"krscreener/symbols"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.requireAuth(s.handleLogout))

	mux.HandleFunc("GET /api/symbols/search", s.requireAuth(s.handleSymbolSearch))

	mux.HandleFunc("GET /api/watchlist", s.requireAuth(s.handleWatchlistGet))
	mux.HandleFunc("POST /api/watchlist", s.requireAuth(s.handleWatchlistAdd))
	mux.HandleFunc("DELETE /api/watchlist", s.requireAuth(s.handleWatchlistClear))
	mux.HandleFunc("DELETE /api/watchlist/{code}", s.requireAuth(s.handleWatchlistRemove))

	mux.HandleFunc("POST /api/screen", s.requireAuth(s.handleScreen))
	mux.HandleFunc("GET /api/screen/export", s.requireAuth(s.handleExport))
	mux.HandleFunc("GET /api/analyze/{code}", s.requireAuth(s.handleAnalyze))

	mux.HandleFunc("POST /api/uploads/prices/{code}", s.requireAuth(s.handleUploadPrices))
	mux.HandleFunc("POST /api/uploads/master", s.requireAuth(s.handleUploadMaster))

	mux.HandleFunc("GET /api/providers/status", s.requireAuth(s.handleProvidersStatus))

	mux.HandleFunc("GET /api/ws/progress", s.hub.HandleWebSocket)
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "잘못된 요청 본문")
		return
	}
	if err := s.gate.Verify(req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "비밀번호가 올바르지 않습니다")
		return
	}

	token, err := s.issueToken()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "토큰 발급 실패")
		return
	}
	respondJSON(w, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.revokeToken(bearerToken(r))
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSymbolSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results := s.reslv.Resolve(r.Context(), q)
	if results == nil {
		results = []market.Symbol{}
	}
	respondJSON(w, map[string]any{"query": q, "results": results})
}

func (s *Server) handleWatchlistGet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{"watchlist": s.session.Watchlist()})
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	var sym market.Symbol
	if err := json.NewDecoder(r.Body).Decode(&sym); err != nil {
		respondError(w, http.StatusBadRequest, "잘못된 요청 본문")
		return
	}
	sym.Code = symbols.NormalizeCode(sym.Code)
	if sym.Name == "" {
		respondError(w, http.StatusBadRequest, "종목명이 필요합니다")
		return
	}
	if sym.Sector == "" {
		sym.Sector = market.DefaultSector
	}
	if err := s.session.Add(sym); err != nil {
		respondError(w, http.StatusConflict, "이미 관심종목에 있습니다")
		return
	}
	respondJSON(w, map[string]any{"watchlist": s.session.Watchlist()})
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if !s.session.Remove(code) {
		respondError(w, http.StatusNotFound, "관심종목에 없습니다")
		return
	}
	respondJSON(w, map[string]any{"watchlist": s.session.Watchlist()})
}

func (s *Server) handleWatchlistClear(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	respondJSON(w, map[string]any{"watchlist": []market.Symbol{}})
}

type screenRequest struct {
	Conditions   []screener.Condition `json:"conditions"`
	GapThreshold float64              `json:"gap_threshold"`
	VolumeRatio  float64              `json:"volume_ratio"`
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "잘못된 요청 본문")
		return
	}

	spec := screener.FilterSpec{
		Conditions:   req.Conditions,
		GapThreshold: req.GapThreshold,
		VolumeRatio:  req.VolumeRatio,
	}
	if spec.GapThreshold == 0 {
		spec.GapThreshold = s.cfg.Screener.GapThreshold
	}
	if spec.VolumeRatio == 0 {
		spec.VolumeRatio = s.cfg.Screener.VolumeRatio
	}

	results, warnings, err := s.session.Screen(r.Context(), spec)
	if err != nil {
		if r.Context().Err() != nil {
			respondError(w, http.StatusRequestTimeout, "검색이 취소되었습니다")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.lastResults = results
	s.mu.Unlock()

	if results == nil {
		results = []screener.MatchRecord{}
	}
	if warnings == nil {
		warnings = []screener.Warning{}
	}
	respondJSON(w, map[string]any{"results": results, "warnings": warnings})
}

// handleExport returns the previous screen run as a spreadsheet-ready CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	results := s.lastResults
	s.mu.RUnlock()

	if len(results) == 0 {
		respondError(w, http.StatusNotFound, "내보낼 검색 결과가 없습니다")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="screen_results.csv"`)
	if err := screener.WriteCSV(w, results); err != nil {
		s.log.Warnw("csv export failed", "err", err)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	code := symbols.NormalizeCode(r.PathValue("code"))
	sym := market.Symbol{
		Code:   code,
		Name:   r.URL.Query().Get("name"),
		Sector: r.URL.Query().Get("sector"),
	}
	if sym.Sector == "" {
		sym.Sector = market.DefaultSector
	}

	adv, err := s.session.Analyze(r.Context(), sym)
	if err != nil {
		if errors.Is(err, market.ErrInsufficientHistory) {
			respondError(w, http.StatusUnprocessableEntity, "시세 이력 부족 (35봉 미만)")
			return
		}
		respondError(w, http.StatusBadGateway, "시세 데이터 없음 (라이브 차단 또는 업로드 필요)")
		return
	}
	respondJSON(w, adv)
}

// handleUploadPrices accepts an OHLCV CSV for one symbol and pins it as the
// offline series, taking precedence over live providers.
func (s *Server) handleUploadPrices(w http.ResponseWriter, r *http.Request) {
	code := symbols.NormalizeCode(r.PathValue("code"))

	ps, err := pipeline.ParseOHLCV(r.Body)
	if err != nil {
		var malformed *pipeline.MalformedUploadError
		switch {
		case errors.As(err, &malformed):
			respondError(w, http.StatusBadRequest, "필수 컬럼 누락: "+malformed.Error())
		case errors.Is(err, market.ErrInsufficientHistory):
			respondError(w, http.StatusUnprocessableEntity, "시세 이력 부족 (35봉 미만)")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.history.PutOffline(code, ps)
	s.log.Infow("offline series uploaded", "code", code, "bars", ps.Len())
	respondJSON(w, map[string]any{"code": code, "bars": ps.Len()})
}

// handleUploadMaster installs an uploaded symbol master list as the highest
// priority resolver source.
func (s *Server) handleUploadMaster(w http.ResponseWriter, r *http.Request) {
	rows, err := pipeline.ParseSymbolMaster(r.Body)
	if err != nil {
		var malformed *pipeline.MalformedUploadError
		if errors.As(err, &malformed) {
			respondError(w, http.StatusBadRequest, "필수 컬럼 누락: "+malformed.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.uploaded.SetRows(rows)

	s.log.Infow("symbol master uploaded", "rows", len(rows))
	respondJSON(w, map[string]any{"rows": len(rows)})
}

func (s *Server) handleProvidersStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{"providers": s.history.Names()})
}
