// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/action"
	"github.com/starford/ansuz/internal/ai"
	"github.com/starford/ansuz/internal/analyzer"
	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/vault"
)

// initApp applies options and sets up the default JSON logger. logTo differs
// per mode: stdio MCP mode must keep stdout clean for the protocol.
func initApp(opts []Option, logTo io.Writer) (*Config, *slog.Logger, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(logTo, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)
	return app.config, logger, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := initApp(opts, os.Stdout)
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("ai_enabled", cfg.AI.Enabled))

	// SSE broker carries note, graph, patch and suggestion events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, store, db, cleanup, err := buildService(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer cleanup()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Vault.Path)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated). Liveness is unconditional;
	// readiness requires the index database to answer.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
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

	// Queue of note paths awaiting idle analysis. The watcher callback must
	// never block, so enqueueing drops when the worker is saturated; the
	// next save of the same note re-queues it.
	analysisCh := make(chan string, 64)

	// Start file watcher. Every index mutation goes out over SSE and
	// creates/updates additionally schedule an analysis pass.
	g.Go(func() error {
		return index.Watch(gCtx, db, store, cfg.Vault.Path, logger, func(kind, path string) {
			broker.PublishNoteEvent(kind, path)
			if kind == "deleted" {
				return
			}
			select {
			case analysisCh <- path:
			default:
			}
		})
	})

	// Idle analysis worker. A single worker bounds AI concurrency; the
	// per-note fingerprint makes repeated saves of unchanged content free.
	g.Go(func() error {
		for {
			select {
			case <-gCtx.Done():
				return nil
			case path := <-analysisCh:
				res, aErr := svc.AnalyzeNote(gCtx, path)
				if aErr != nil {
					logger.Debug("idle analysis failed",
						slog.String("path", path),
						slog.String("error", aErr.Error()))
					continue
				}
				if res == nil {
					continue
				}
				broker.PublishSuggestions(path, len(res.Suggestions))
			}
		}
	})

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams never go idle on their own, and Shutdown waits for
		// active requests. Closing the broker first ends every stream so
		// shutdown does not sit out its full timeout.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP stdio transport. Stdout belongs to the protocol in
// this mode, so logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	cfg, logger, err := initApp(opts, os.Stderr)
	if err != nil {
		return err
	}

	svc, store, _, cleanup, err := buildService(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("MCP server starting on stdio",
		slog.String("vault_path", cfg.Vault.Path))

	return mcpserver.New(svc, store).ServeStdio()
}

// buildService constructs the shared service stack: vault, index (synced),
// AI probe, pipeline, analyzer. events may be nil (stdio mode has no SSE).
func buildService(ctx context.Context, cfg *Config, logger *slog.Logger, events noteservice.Events) (*noteservice.Service, vault.Provider, *index.DB, func(), error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := vault.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init vault: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// AI is optional: if the runtime is down or the model missing, patch
	// generation and analysis fall back to rules.
	var gen action.Generator
	var contentAI analyzer.ContentAnalyzer
	if engine := probeAI(ctx, cfg, logger); engine != nil {
		gen = engine
		contentAI = engine
	}

	pipeline := action.NewPipeline(gen, logger)
	an := analyzer.New(contentAI, cfg.Analyzer.MinContentLength, logger)

	svc := noteservice.New(store, db, pipeline, an, events, logger)
	cleanup := func() { _ = db.Close() }
	return svc, store, db, cleanup, nil
}

// probeAI checks the model runtime and returns a ready engine, or nil when
// AI features should degrade to rule-based fallbacks.
func probeAI(ctx context.Context, cfg *Config, logger *slog.Logger) *ai.Engine {
	if !cfg.AI.Enabled {
		logger.Info("AI disabled by config; using rule-based fallbacks")
		return nil
	}

	client := ai.NewClient(cfg.AI.BaseURL)
	if !client.IsRunning(ctx) {
		logger.Warn("AI runtime not reachable; using rule-based fallbacks",
			slog.String("base_url", cfg.AI.BaseURL))
		return nil
	}
	if !client.HasModel(ctx, cfg.AI.Model) {
		logger.Warn("AI model not available; using rule-based fallbacks",
			slog.String("model", cfg.AI.Model),
			slog.String("base_url", cfg.AI.BaseURL))
		return nil
	}

	logger.Info("AI engine ready",
		slog.String("model", cfg.AI.Model),
		slog.String("base_url", cfg.AI.BaseURL))
	return ai.NewEngine(client, cfg.AI.Model, cfg.AI.TimeoutDuration())
}
