// Command agentdraind runs the reference server for the graceful shutdown
// coordination core: an HTTP front end over pkg/lifecycle and pkg/hooks,
// backed by a configurable session store.
//
// Usage:
//
//	agentdraind serve --config config.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/agentdrain/agentdrain/pkg/config"
	"github.com/agentdrain/agentdrain/pkg/core"
	"github.com/agentdrain/agentdrain/pkg/httpapi"
	"github.com/agentdrain/agentdrain/pkg/lifecycle"
	"github.com/agentdrain/agentdrain/pkg/observability"
	"github.com/agentdrain/agentdrain/pkg/store/memstore"
	"github.com/agentdrain/agentdrain/pkg/store/pgstore"
	"github.com/agentdrain/agentdrain/pkg/store/redisstore"
)

// CLI defines the command-line interface, following the teacher's
// single-binary-multiple-subcommands shape (cmd/hector/main.go), trimmed
// to the one subcommand this module actually needs.
type CLI struct {
	Serve ServeCmd `cmd:"" help:"Start the agentdrain server."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Watch bool `help:"Watch config file for changes and hot-reload the drain deadline."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	logger := newLogger(cli.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()

	var cfg *config.Config
	var loader *config.Loader
	if cli.Config != "" {
		var err error
		loader, err = config.NewLoader(cli.Config)
		if err != nil {
			return fmt.Errorf("agentdraind: load config: %w", err)
		}
		defer loader.Stop()
		cfg = loader.Current()
	} else {
		cfg = config.Default()
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics := observability.NewMetrics()
	controller := lifecycle.New(lifecycle.WithMetrics(metrics), lifecycle.WithLogger(logger))

	if _, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:      false,
		ServiceName:  "agentdrain",
		SamplingRate: 1.0,
	}); err != nil {
		return fmt.Errorf("agentdraind: init tracer: %w", err)
	}

	shutdownDeadline := cfg.DrainDeadline
	hook := lifecycle.NewShutdownHook(controller, shutdownDeadline, logger)

	if c.Watch && loader != nil {
		loader.SetOnChange(func(newCfg *config.Config) {
			hook.SetDeadline(newCfg.DrainDeadline)
			logger.Info("agentdraind: drain deadline updated on reload", "drain_deadline", hook.Deadline())
		})
	}

	router := httpapi.NewRouter(httpapi.Options{
		Controller:     controller,
		Store:          store,
		Logger:         logger,
		MetricsHandler: metrics.Handler(),
		Steps:          4,
	})

	srv := &httpServer{logger: logger, srv: &http.Server{Addr: cfg.HTTPAddr, Handler: router}}
	go srv.run()

	logger.Info("agentdraind: serving", "addr", cfg.HTTPAddr, "store_backend", cfg.StoreBackend, "drain_deadline", shutdownDeadline)

	clean := hook.Wait(ctx)
	if err := srv.shutdown(ctx); err != nil {
		logger.Error("agentdraind: http server shutdown error", "error", err)
	}
	if !clean {
		os.Exit(1)
	}
	return nil
}

func buildStore(ctx context.Context, cfg *config.Config) (store core.SessionStore, closeFn func(), err error) {
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisstore.New(client), func() { _ = client.Close() }, nil

	case config.StoreBackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("agentdraind: connect postgres: %w", err)
		}
		if _, err := pool.Exec(ctx, pgstore.CreateTableSQL); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("agentdraind: provision postgres table: %w", err)
		}
		return pgstore.New(pool), pool.Close, nil

	default:
		return memstore.New(), func() {}, nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// httpServer wraps http.Server with the run-in-background/Shutdown-on-signal
// split the teacher's pkg/server/server.go uses for its own HTTP listener.
type httpServer struct {
	logger *slog.Logger
	srv    *http.Server
}

func (s *httpServer) run() {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("agentdraind: http server failed", "error", err)
	}
}

func (s *httpServer) shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentdraind"),
		kong.Description("agentdrain - graceful shutdown coordination for long-running agent executions"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
