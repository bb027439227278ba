// Package app is the composition root: it assembles the stores and services
// from config and runs the HTTP server until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/api"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/auditlog"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/auth"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/config"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/features"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/history"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/history/kvstore"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/llm"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/monitor"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/settings"
)

type Options struct {
	Config  *config.Config
	Version string
}

type App struct {
	log *slog.Logger
	cfg *config.Config

	kv        *kvstore.Store
	userStore *auth.Store
	server    *api.Server

	version string
}

func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("missing Config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := newLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	dataDir := cfg.ResolvedDataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}

	catalog := features.NewCatalog()
	if path := strings.TrimSpace(cfg.CustomFeaturesPath); path != "" {
		if err := catalog.LoadCustom(path); err != nil {
			return nil, fmt.Errorf("load custom features: %w", err)
		}
	}

	kv, err := kvstore.Open(filepath.Join(dataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	userStore, err := auth.OpenStore(filepath.Join(dataDir, "users.db"))
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("open users db: %w", err)
	}
	issuer, err := auth.NewTokenIssuer(filepath.Join(dataDir, "signing.key"), auth.TTLFromMinutes(cfg.AccessTokenTTLMinutes()))
	if err != nil {
		_ = kv.Close()
		_ = userStore.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	audit, err := auditlog.New(auditlog.Options{Logger: log, StateDir: dataDir})
	if err != nil {
		_ = kv.Close()
		_ = userStore.Close()
		return nil, fmt.Errorf("init audit log: %w", err)
	}

	secrets := settings.NewSecrets(filepath.Join(dataDir, "secrets.json"))

	server, err := api.New(api.Options{
		Logger:   log,
		Config:   cfg,
		Auth:     auth.NewService(log, userStore, issuer),
		History:  history.NewManager(log, kv, catalog.Has),
		Features: catalog,
		Models:   llm.NewRegistry(cfg, secrets),
		Monitor:  monitor.NewService(log),
		Audit:    audit,
		Version:  opts.Version,
	})
	if err != nil {
		_ = kv.Close()
		_ = userStore.Close()
		return nil, err
	}

	return &App{
		log:       log,
		cfg:       cfg,
		kv:        kv,
		userStore: userStore,
		server:    server,
		version:   strings.TrimSpace(opts.Version),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return errors.New("nil app")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer a.close()

	a.log.Info("server starting",
		"version", a.version,
		"listen_addr", a.cfg.ListenAddr,
		"data_dir", a.cfg.ResolvedDataDir(),
		"goos", runtime.GOOS,
		"goarch", runtime.GOARCH,
	)

	if err := a.server.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.log.Info("server stopping")
	return ctx.Err()
}

func (a *App) close() {
	if a == nil {
		return
	}
	if a.server != nil {
		_ = a.server.Close()
	}
	if a.userStore != nil {
		_ = a.userStore.Close()
	}
	if a.kv != nil {
		_ = a.kv.Close()
	}
}

func newLogger(format string, level string) (*slog.Logger, error) {
	var h slog.Handler

	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %s", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		h = slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	return slog.New(h), nil
}
