package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/accounts"
	"github.com/ziadkadry99/opbot/internal/audit"
	"github.com/ziadkadry99/opbot/internal/commands"
	"github.com/ziadkadry99/opbot/internal/config"
	"github.com/ziadkadry99/opbot/internal/db"
	"github.com/ziadkadry99/opbot/internal/interactions"
	"github.com/ziadkadry99/opbot/internal/metrics"
	"github.com/ziadkadry99/opbot/internal/monitor"
	"github.com/ziadkadry99/opbot/internal/server"
)

const (
	shutdownGrace = 30 * time.Second
	// Headroom between the handler timeout and the HTTP write timeout, so the
	// dispatcher always answers before the connection is cut.
	writeHeadroom = 30 * time.Second
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the interactions gateway",
	Long:  `Starts the HTTP server that receives signed interaction webhooks on POST /interactions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Account storage and the interaction log share one database.
		var (
			store      *accounts.Store
			auditStore *audit.Store
			finder     interactions.AccountFinder
		)
		if cfg.Database.Path != "" {
			database, err := db.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer database.Close()

			store = accounts.NewStore(database)
			auditStore = audit.NewStore(database, logger)
			finder = store
		} else {
			logger.Warn("database.path is empty, account storage and the interaction log are disabled")
		}

		if store != nil && cfg.Redis.Addr != "" {
			rdb := newRedisClient(ctx, cfg.Redis, logger)
			defer rdb.Close()
			finder = accounts.NewCachedFinder(store, rdb, cfg.Redis.TTL, logger)
		}

		m := metrics.New()

		client := interactions.NewClient(interactions.ClientConfig{
			BaseURL:       cfg.APIBaseURL,
			ApplicationID: cfg.ApplicationID,
			BotToken:      cfg.BotToken,
			Timeout:       cfg.Callback.Timeout,
			RatePerSecond: cfg.Callback.RatePerSecond,
			Burst:         cfg.Callback.Burst,
		}, logger)
		client.OnCallback(m.ObserveCallback)

		cmdDeps := commands.Deps{Logger: logger, AccountCommand: cfg.Dispatch.AccountCommand}
		if store != nil {
			cmdDeps.Store = store
		}
		registry := interactions.NewRegistry(logger, commands.All(cmdDeps)...)

		hub := monitor.NewHub(logger)
		observers := interactions.Observers{m, hub}
		var mon *monitor.Monitor
		if auditStore != nil {
			observers = append(observers, auditStore)
			mon = monitor.New(hub, auditStore, logger)
		} else {
			mon = monitor.New(hub, nil, logger)
		}

		dispatcher := interactions.NewDispatcher(interactions.DispatcherConfig{
			Verifier:       interactions.NewVerifier(cfg.PublicKey, cfg.Dispatch.MaxClockSkew),
			Registry:       registry,
			Gate:           interactions.NewGate(finder, cfg.Dispatch.AccountCommand, logger),
			Client:         client,
			Observer:       observers,
			Logger:         logger,
			AckDeadline:    cfg.Dispatch.AckDeadline,
			HandlerTimeout: cfg.Dispatch.HandlerTimeout,
			MaxBodyBytes:   cfg.Dispatch.MaxBodyBytes,
		})

		var writeTimeout time.Duration
		if cfg.Dispatch.HandlerTimeout > 0 {
			writeTimeout = cfg.Dispatch.HandlerTimeout + writeHeadroom
		}

		srv := server.New(server.Config{
			Port:         cfg.Server.Port,
			AllowAll:     cfg.Server.AllowAll,
			AdminToken:   cfg.Server.AdminToken,
			WriteTimeout: writeTimeout,
		}, server.Deps{
			Dispatcher: dispatcher,
			Metrics:    m,
			Audit:      auditStore,
			Monitor:    mon,
			Logger:     logger,
		})

		logger.Info("opbot starting",
			zap.String("version", Version),
			zap.Int("port", cfg.Server.Port),
			zap.String("database", cfg.Database.Path),
			zap.Strings("commands", registry.Names()),
			zap.Bool("redis_cache", cfg.Redis.Addr != "" && store != nil),
			zap.Bool("operator_routes", cfg.Server.AdminToken != ""),
		)

		errc := make(chan error, 1)
		go func() { errc <- srv.Start() }()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down", zap.Duration("grace", shutdownGrace))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown incomplete", zap.Error(err))
		}
		return <-errc
	},
}

// newRedisClient connects the account cache. An unreachable server is not
// fatal: the cache falls through to SQLite until redis comes back.
func newRedisClient(ctx context.Context, rc config.RedisConfig, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, account cache will fall through", zap.String("addr", rc.Addr), zap.Error(err))
	}
	return rdb
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 3000, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
