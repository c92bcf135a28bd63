// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/relscope/internal/api"
	"github.com/starford/relscope/internal/index"
	"github.com/starford/relscope/internal/mcpserver"
	"github.com/starford/relscope/internal/packageservice"
	"github.com/starford/relscope/internal/preview"
	"github.com/starford/relscope/internal/sse"
	"github.com/starford/relscope/internal/storage"
)

// components holds the parts shared by the HTTP and MCP front ends.
type components struct {
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	broker *sse.Broker
	svc    *packageservice.Service
}

func (rt *components) close() {
	rt.svc.CloseAll(context.Background())
	if n := rt.broker.ClientCount(); n > 0 {
		rt.logger.Info("closing event stream", slog.Int("clients", n))
	}
	rt.broker.Close()
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close index failed", slog.String("error", err.Error()))
	}
}

func (a *application) setup() (*components, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("base_path", cfg.Viewer.BasePath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure workspace directory exists.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := db.Purge(); err != nil {
		logger.Warn("purge stale index failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)

	svc := packageservice.New(preview.NewStore(),
		packageservice.WithIndex(db),
		packageservice.WithWorkspace(store),
		packageservice.WithNotifier(broker),
		packageservice.WithLogger(logger),
		packageservice.WithBasePath(cfg.Viewer.BasePath),
		packageservice.WithMaxUnpackedSize(cfg.App.MaxUnpackedBytes),
	)

	return &components{logger: logger, store: store, db: db, broker: broker, svc: svc}, nil
}

// watch reloads sessions backed by changed workspace files and tells
// clients about the change. It blocks until ctx is cancelled.
func (rt *components) watch(ctx context.Context) error {
	return storage.Watch(ctx, rt.store, rt.logger, func(kind, path string) {
		rt.svc.WorkspaceChanged(ctx, kind, path)
		rt.broker.Publish(sse.Event{
			Type: sse.WorkspaceChange,
			Data: map[string]string{"kind": kind, "path": path},
		})
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := app.setup()
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := app.config
	logger := rt.logger

	apiRouter := api.NewRouter(rt.svc, api.RouterConfig{
		AuthEnabled:    cfg.Auth.AuthEnabled(),
		Token:          cfg.Auth.Token,
		MaxUploadBytes: cfg.App.MaxUploadBytes,
		Viewer: api.ViewerSettings{
			BasePath:            cfg.Viewer.BasePath,
			AutoCollapseTags:    cfg.Viewer.AutoCollapseTags,
			AutoCollapseTagList: ParseAutoCollapseTags(cfg.Viewer.AutoCollapseTags),
		},
		Events: rt.broker,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Workspace.Watch {
		g.Go(func() error {
			if err := rt.watch(gCtx); err != nil {
				logger.Warn("workspace watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been asked to stop, so
// the watcher exits with it.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to the configured
// output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	rt, err := app.setup()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if app.config.Workspace.Watch {
		go func() {
			if err := rt.watch(ctx); err != nil {
				rt.logger.Warn("workspace watcher unavailable", slog.String("error", err.Error()))
			}
		}()
	}

	rt.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(rt.svc).ServeStdio()
}
