package net

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/auth"
	"github.com/gridrealm/server/internal/config"
)

// StatusFunc supplies the /status payload.
type StatusFunc func() map[string]any

// LoginFunc resolves credentials to a bearer token. An empty token with
// a nil error means the credentials were rejected.
type LoginFunc func(ctx context.Context, username, password string) (string, error)

// Server terminates websockets and serves the operational HTTP surface
// (/status, /metrics). The bearer token is checked at upgrade time;
// CMD_AUTHENTICATE then binds the session to its player.
type Server struct {
	cfg    *config.Config
	log    *zap.Logger
	tokens *auth.Tokens
	status StatusFunc

	upgrader websocket.Upgrader
	http     *http.Server

	mu       sync.Mutex
	sessions map[int64]*Session

	// OnConnect runs for every upgraded session before its pumps
	// start. The game layer registers its close hook here.
	OnConnect func(*Session, int64) // session, token player ID

	// Login backs POST /auth/login. Unset disables the endpoint.
	Login LoginFunc
}

func NewServer(cfg *config.Config, tokens *auth.Tokens, status StatusFunc, log *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		tokens:   tokens,
		status:   status,
		sessions: make(map[int64]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser client connects cross-origin from the CDN.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(cfg.Server.WebsocketPath, s.handleUpgrade)
	r.Post("/auth/login", s.handleLogin)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening",
		zap.String("addr", s.cfg.Server.Addr()),
		zap.String("ws_path", s.cfg.Server.WebsocketPath))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting and closes every live session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	for _, sess := range s.Sessions() {
		sess.Close()
	}
	return err
}

// Sessions snapshots the live session list.
func (s *Server) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// FlushAll runs the per-tick output flush on every session.
func (s *Server) FlushAll() {
	for _, sess := range s.Sessions() {
		sess.FlushOutput()
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	playerID, err := s.tokens.Verify(bearerToken(r))
	if err != nil {
		s.log.Debug("rejected upgrade", zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}
	sess := NewSession(conn, s.cfg.Net, s.log)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if s.OnConnect != nil {
		s.OnConnect(sess, playerID)
	}
	gameClose := sess.OnClose
	sess.OnClose = func(dead *Session) {
		s.mu.Lock()
		delete(s.sessions, dead.ID)
		s.mu.Unlock()
		if gameClose != nil {
			gameClose(dead)
		}
	}
	sess.Start()
	s.log.Info("session connected",
		zap.Int64("session", sess.ID),
		zap.Int64("token_player", playerID),
		zap.String("remote", r.RemoteAddr))
}

// bearerToken pulls the token from the Authorization header or, for
// browser websocket clients that cannot set headers, the query string.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// handleLogin exchanges username/password for a websocket bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.Login == nil {
		http.Error(w, "login disabled", http.StatusNotFound)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token, err := s.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.log.Error("login lookup failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if token == "" {
		s.log.Debug("rejected login", zap.String("username", req.Username))
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{
		"status":     "ok",
		"start_time": s.cfg.Server.StartTime,
		"uptime_sec": time.Now().Unix() - s.cfg.Server.StartTime,
	}
	if s.status != nil {
		for k, v := range s.status() {
			body[k] = v
		}
	}
	json.NewEncoder(w).Encode(body)
}
