// Package http hosts the thin web surface over the ledger and report
// engine: a login-gated JSON API plus the artifact download endpoint.
package http

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"truckbooks/internal/artifact"
	"truckbooks/internal/cache"
	"truckbooks/internal/config"
	"truckbooks/internal/ledger"
	"truckbooks/internal/report"
	"truckbooks/internal/storage"
)

const sessionCookie = "truckbooks_session"

type Server struct {
	http.Server

	cfg       *config.Config
	repo      *storage.Repository
	engine    *ledger.Engine
	generator *report.Generator
	artifacts *artifact.Store

	sessions     *sessionStore
	loginLimiter *rateLimiter

	// summaries memoizes filtered totals between ledger writes.
	summaries *cache.LRU[ledger.Summary]
}

// NewServer wires the routes and returns a ready-to-run server.
func NewServer(addr string, cfg *config.Config, repo *storage.Repository, engine *ledger.Engine, generator *report.Generator, artifacts *artifact.Store) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		cfg:          cfg,
		repo:         repo,
		engine:       engine,
		generator:    generator,
		artifacts:    artifacts,
		sessions:     newSessionStore(cfg.SessionTTL),
		loginLimiter: newRateLimiter(10, time.Minute),
		summaries:    cache.NewLRU[ledger.Summary](128, 30*time.Second),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/login", s.withRequest(s.handleLogin))
	mux.HandleFunc("/logout", s.withRequest(s.requireAuth(s.handleLogout)))

	mux.HandleFunc("/api/summary", s.withRequest(s.requireAuth(s.handleSummary)))
	mux.HandleFunc("/api/entries", s.withRequest(s.requireAuth(s.handleEntries)))
	mux.HandleFunc("/api/entries/delete", s.withRequest(s.requireAuth(s.handleDeleteEntry)))
	mux.HandleFunc("/api/trucks", s.withRequest(s.requireAuth(s.handleTrucks)))
	mux.HandleFunc("/api/drivers", s.withRequest(s.requireAuth(s.handleDrivers)))

	mux.HandleFunc("/api/reports/monthly", s.withRequest(s.requireAuth(s.handleMonthlyReport)))
	mux.HandleFunc("/api/reports/driver-pay", s.withRequest(s.requireAuth(s.handleDriverPayReport)))
	mux.HandleFunc("/api/reports/hst", s.withRequest(s.requireAuth(s.handleHSTReport)))
	mux.HandleFunc("/api/reports/download", s.withRequest(s.requireAuth(s.handleDownload)))

	return s
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// withRequest tags the request with an id and logs start and completion.
func (s *Server) withRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ctx := r.Context()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP(r))
	}
}

// requireAuth rejects requests without a live session cookie.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || !s.sessions.valid(c.Value) {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ip := clientIP(r)
	if !s.loginLimiter.allow(ip) {
		slog.WarnContext(r.Context(), "Login rate limit exceeded", "client_ip", ip)
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.LoginUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.LoginPass)) == 1
	if !userOK || !passOK {
		slog.WarnContext(r.Context(), "Invalid login", "client_ip", ip)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := s.sessions.create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.revoke(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// sessionStore is an in-memory token store; sessions do not survive a
// restart, which is acceptable for a single-operator deployment.
type sessionStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[string]time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, tokens: make(map[string]time.Time)}
}

func (st *sessionStore) create() string {
	b := make([]byte, 16)
	rand.Read(b)
	token := hex.EncodeToString(b)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.tokens[token] = time.Now().Add(st.ttl)
	return token
}

func (st *sessionStore) valid(token string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	expiry, ok := st.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(st.tokens, token)
		return false
	}
	return true
}

func (st *sessionStore) revoke(token string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.tokens, token)
}

// rateLimiter is a fixed-window per-client limiter used on the login
// endpoint. Expired windows are swept on access so the client map does
// not grow with every distinct IP ever seen.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	clients   map[string]*clientWindow
	nextSweep time.Time
}

type clientWindow struct {
	start    time.Time
	requests int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:     limit,
		window:    window,
		clients:   make(map[string]*clientWindow),
		nextSweep: time.Now().Add(window),
	}
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.After(rl.nextSweep) {
		rl.sweep(now)
	}

	c, ok := rl.clients[clientIP]
	if !ok || now.Sub(c.start) > rl.window {
		rl.clients[clientIP] = &clientWindow{start: now, requests: 1}
		return true
	}
	c.requests++
	return c.requests <= rl.limit
}

// sweep drops every window that has already elapsed. Caller holds mu.
func (rl *rateLimiter) sweep(now time.Time) {
	for ip, c := range rl.clients {
		if now.Sub(c.start) > rl.window {
			delete(rl.clients, ip)
		}
	}
	rl.nextSweep = now.Add(rl.window)
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
