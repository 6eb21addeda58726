package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LLIu33/swot/internal/app"
	"github.com/LLIu33/swot/internal/config"
	"github.com/LLIu33/swot/internal/infra/memory"
	"github.com/LLIu33/swot/internal/infra/postgres"
	rediscache "github.com/LLIu33/swot/internal/infra/redis"
	transport "github.com/LLIu33/swot/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the topic server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := RunMigrations(ctx, cfg.Postgres.URL, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, closeStore, err := openTopicStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	service := app.NewTopicService(store)
	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, logger, cfg.Server.AllowedOrigins),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the topic feed keeps connections open
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting topic service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openTopicStore picks Postgres when configured, memory otherwise, and fronts either with
// the Redis cache when a Redis address is set.
func openTopicStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (app.TopicStore, func(), error) {
	var (
		store   app.TopicStore
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		store = postgres.NewTopicStore(pool)
		logger.Info("using postgres topic store")
	} else {
		store = memory.NewTopicStore()
		logger.Info("using in-memory topic store")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		store = rediscache.NewTopicStore(client, store, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		logger.Info("caching topics in redis", "addr", cfg.Redis.Addr)
	}
	return store, closeAll, nil
}
