// Package api exposes the HTTP surface: auth, chat history, streaming chat
// turns, features, and server status.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/auditlog"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/auth"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/config"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/features"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/history"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/llm"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/monitor"
)

type Options struct {
	Logger *slog.Logger

	Config   *config.Config
	Auth     *auth.Service
	History  *history.Manager
	Features *features.Catalog
	Models   *llm.Registry
	Monitor  *monitor.Service
	Audit    *auditlog.Store

	// Version is the server build version (reported by /healthz).
	Version string
}

type Server struct {
	log *slog.Logger

	cfg      *config.Config
	auth     *auth.Service
	history  *history.Manager
	features *features.Catalog
	models   *llm.Registry
	monitor  *monitor.Service
	audit    *auditlog.Store

	version string

	ln  net.Listener
	srv *http.Server
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("missing Config")
	}
	if opts.Auth == nil {
		return nil, errors.New("missing Auth")
	}
	if opts.History == nil {
		return nil, errors.New("missing History")
	}
	if opts.Features == nil {
		return nil, errors.New("missing Features")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return &Server{
		log:      logger,
		cfg:      opts.Config,
		auth:     opts.Auth,
		history:  opts.History,
		features: opts.Features,
		models:   opts.Models,
		monitor:  opts.Monitor,
		audit:    opts.Audit,
		version:  strings.TrimSpace(opts.Version),
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if s.srv != nil {
		return nil
	}

	addr := strings.TrimSpace(s.cfg.ListenAddr)
	if addr == "" {
		addr = "127.0.0.1:8090"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.withCORS(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.ln = ln

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("api server stopped", "error", err)
		}
	}()

	s.log.Info("api listening", "addr", addr)
	return nil
}

func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(ctx)
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.srv = nil
	s.ln = nil
	return nil
}

// Addr returns the bound listen address (useful when the port was :0).
func (s *Server) Addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.Handle("GET /api/features", s.requireAuth(s.handleFeatures))
	mux.Handle("GET /api/models", s.requireAuth(s.handleModels))

	mux.Handle("GET /api/history/threads", s.requireAuth(s.handleListThreads))
	mux.Handle("POST /api/history/threads", s.requireAuth(s.handleCreateThread))
	mux.Handle("GET /api/history/threads/current", s.requireAuth(s.handleCurrentThread))
	mux.Handle("GET /api/history/threads/{id}", s.requireAuth(s.handleGetThread))
	mux.Handle("POST /api/history/threads/{id}/select", s.requireAuth(s.handleSelectThread))
	mux.Handle("POST /api/history/threads/{id}/title", s.requireAuth(s.handleRenameThread))
	mux.Handle("PUT /api/history/threads/{id}/messages", s.requireAuth(s.handleReplaceMessages))
	mux.Handle("DELETE /api/history/threads/{id}", s.requireAuth(s.handleDeleteThread))
	mux.Handle("DELETE /api/history", s.requireAuth(s.handleClearHistory))
	mux.Handle("GET /api/history/export", s.requireAuth(s.handleExportHistory))

	mux.Handle("POST /api/chat", s.requireAuth(s.handleChat))

	mux.Handle("GET /api/system/status", s.requireAuth(s.handleSystemStatus))
	mux.Handle("GET /api/system/audit", s.requireAuth(s.handleAuditList))

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

type ctxKey int

const userCtxKey ctxKey = 0

func userFrom(r *http.Request) *auth.User {
	if r == nil {
		return nil
	}
	u, _ := r.Context().Value(userCtxKey).(*auth.User)
	return u
}

func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		u, err := s.auth.VerifyToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userCtxKey, u)))
	})
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.CORSOrigins))
	for _, o := range s.cfg.CORSOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			allowed[strings.ToLower(o)] = true
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" && allowed[strings.ToLower(strings.TrimRight(origin, "/"))] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	if r == nil || r.Body == nil {
		return errors.New("missing body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 4<<20))
	return dec.Decode(v)
}
