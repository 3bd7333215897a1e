// Package http exposes the screener over a JSON API with a shared-password
// login, CSV uploads and a WebSocket progress feed.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"krscreener/auth"
	"krscreener/config"
	"krscreener/market"
	"krscreener/screener"
	"krscreener/symbols"
)

const (
	maxUploadBytes = 8 << 20
	tokenTTL       = 12 * time.Hour
)

// HistoryStore is the price-history backend: live fetching plus uploaded
// offline series.
type HistoryStore interface {
	screener.HistoryProvider
	PutOffline(code string, ps *market.PriceSeries)
	Names() []string
}

// Server wires sessions, symbol resolution and price history behind the API.
type Server struct {
	server  *http.Server
	log     *zap.SugaredLogger
	gate    *auth.Gate
	reslv   *symbols.Resolver
	history HistoryStore
	session *screener.Session
	hub     *Hub
	cfg     *config.Config

	mu          sync.RWMutex
	tokens      map[string]time.Time // token -> expiry
	uploaded    *symbols.StaticSource
	lastResults []screener.MatchRecord
}

// NewServer builds the server. uploaded is the master-list slot filled by
// the upload endpoint; it is shared with the resolver.
func NewServer(cfg *config.Config, log *zap.SugaredLogger, gate *auth.Gate,
	reslv *symbols.Resolver, history HistoryStore, session *screener.Session,
	uploaded *symbols.StaticSource) *Server {

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	s := &Server{
		log:      log,
		gate:     gate,
		reslv:    reslv,
		history:  history,
		session:  session,
		hub:      NewHub(log),
		cfg:      cfg,
		tokens:   map[string]time.Time{},
		uploaded: uploaded,
	}

	session.OnProgress = s.hub.BroadcastProgress

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	chain := Chain(
		RecoveryMiddleware(log),
		LoggerMiddleware(log),
		CORSMiddleware([]string{"*"}),
		TimeoutMiddleware(cfg.WriteTimeout()),
		RequestSizeMiddleware(maxUploadBytes),
	)

	s.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      chain(mux),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start runs the hub and blocks serving requests.
func (s *Server) Start() error {
	go s.hub.Run()
	s.log.Infow("http server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains connections and shuts the hub down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.hub.Stop()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) issueToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)

	now := time.Now()
	s.mu.Lock()
	for t, exp := range s.tokens {
		if now.After(exp) {
			delete(s.tokens, t)
		}
	}
	s.tokens[token] = now.Add(tokenTTL)
	s.mu.Unlock()
	return token, nil
}

func (s *Server) validToken(token string) bool {
	if token == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.tokens[token]
	return ok && time.Now().Before(exp)
}

func (s *Server) revokeToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// requireAuth wraps session-scoped handlers behind the bearer token check.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.validToken(bearerToken(r)) {
			respondError(w, http.StatusUnauthorized, "로그인이 필요합니다")
			return
		}
		next(w, r)
	}
}
