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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/taskwise/internal/api"
	"github.com/starford/taskwise/internal/command"
	"github.com/starford/taskwise/internal/importer"
	"github.com/starford/taskwise/internal/interpreter"
	"github.com/starford/taskwise/internal/mcpserver"
	"github.com/starford/taskwise/internal/sse"
	"github.com/starford/taskwise/internal/storage"
	"github.com/starford/taskwise/internal/store"
	"github.com/starford/taskwise/internal/taskservice"
)

// runtime holds the wired components shared by every entry point.
type runtime struct {
	db       *store.DB
	inbox    *storage.FS
	importer *importer.Importer
	exec     *command.Executor
	interp   *interpreter.Interpreter
	svc      *taskservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", output: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func openRuntime(cfg *Config, logger *slog.Logger) (*runtime, error) {
	// Ensure the import inbox exists.
	if err := os.MkdirAll(cfg.Imports.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create imports dir: %w", err)
	}

	inbox, err := storage.NewFS(cfg.Imports.Path)
	if err != nil {
		return nil, fmt.Errorf("init imports: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	im := importer.New(db, inbox, cfg.Imports.Archive, logger)
	exec := command.NewExecutor(db, inbox, logger)
	exec.SetImporter(im)
	interp := interpreter.New(db, exec, cfg.LLM, logger)

	return &runtime{
		db:       db,
		inbox:    inbox,
		importer: im,
		exec:     exec,
		interp:   interp,
		svc:      taskservice.NewService(db, exec, interp),
	}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("imports_path", cfg.Imports.Path),
		slog.String("llm_driver", cfg.LLM.Driver),
		slog.String("llm_model", cfg.LLM.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt, err := openRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	// SSE broker fed by executor and importer events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	rt.exec.SetNotifier(broker)
	rt.importer.SetNotifier(broker)

	if !cfg.Imports.Watch {
		if n, err := rt.importer.Sync(ctx); err != nil {
			logger.Warn("initial import failed", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Info("initial import", slog.Int("tasks", n))
		}
	}

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := rt.db.ListNotebooks(); err != nil {
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
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the import inbox and announce applied files.
	if cfg.Imports.Watch {
		g.Go(func() error {
			err := importer.Watch(gCtx, rt.importer, cfg.Imports.Path, logger, func(path string, created int) {
				broker.PublishImport(path, created)
			})
			if err != nil {
				logger.Error("import watcher stopped", slog.String("error", err.Error()))
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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// Ask interprets one prompt and writes the rendered answer to the output.
func Ask(ctx context.Context, prompt string, askOpts interpreter.AskOptions, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	level := slog.LevelWarn
	if askOpts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	rt, err := openRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	out, err := rt.interp.Ask(ctx, prompt, askOpts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.output, out)
	return err
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Stdout carries the protocol, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	rt, err := openRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}

// Import copies file into the import inbox and applies it.
func Import(ctx context.Context, file string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	name := filepath.Base(file)
	if !storage.Importable(name) {
		return fmt.Errorf("import %s: only .json and .md files can be imported", name)
	}

	rt, err := openRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	if err := rt.inbox.Write(name, data); err != nil {
		return fmt.Errorf("copy into inbox: %w", err)
	}
	n, err := rt.importer.ImportFile(ctx, name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.output, "Imported %d task(s) from %s\n", n, name)
	return err
}
