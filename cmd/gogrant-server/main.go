// Command gogrant-server serves the password grant, refresh, logout and
// password reset endpoints over HTTP. It is configured entirely from
// GOGRANT_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/directory"
	"github.com/MrEthical07/goGrant/httpapi"
	"github.com/MrEthical07/goGrant/internal/logging"
	"github.com/MrEthical07/goGrant/internal/sqldb"
	"github.com/MrEthical07/goGrant/notify"
	"github.com/MrEthical07/goGrant/token"
	"github.com/MrEthical07/goGrant/token/memstore"
	"github.com/MrEthical07/goGrant/token/redisstore"
	"github.com/MrEthical07/goGrant/token/sqlstore"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gogrant-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := sqldb.OpenAndMigrate(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	dir := directory.NewSQL(db)

	var rdb redis.UniversalClient
	if cfg.RedisAddr != "" {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	store := newTokenStore(cfg, db, rdb)

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	builder := goGrant.New().
		WithConfig(cfg.engineConfig()).
		WithTokenStore(store).
		WithDirectory(dir).
		WithGroupStore(dir).
		WithNotifier(notifier).
		WithLogger(logging.WithComponent(logger, "engine"))
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(goGrant.NewZapSink(logging.WithComponent(logger, "audit")))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if err := engine.Ping(ctx); err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	engine.StartPurger(ctx)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(engine, httpapi.Options{Logger: logger, DisableMetrics: !cfg.MetricsEnabled}),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("token_store", cfg.TokenStore),
			zap.String("notifier", cfg.Notifier),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newTokenStore(cfg serverConfig, db *sqlx.DB, rdb redis.UniversalClient) token.Store {
	switch cfg.TokenStore {
	case storeRedis:
		return redisstore.New(rdb, cfg.RedisPrefix, cfg.engineConfig().Tokens.Retention)
	case storeMemory:
		return memstore.New()
	default:
		return sqlstore.New(db)
	}
}

func newNotifier(cfg serverConfig, logger *zap.Logger) (goGrant.Notifier, func(), error) {
	noop := func() {}
	logger = logging.WithComponent(logger, "notify")

	switch cfg.Notifier {
	case notifierSMTP:
		n, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return n, noop, nil
	case notifierKafka:
		n, err := notify.NewKafka(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic), "gogrant", logger)
		if err != nil {
			return nil, noop, err
		}
		return n, func() {
			if err := n.Close(); err != nil {
				logger.Warn("close kafka writer", zap.Error(err))
			}
		}, nil
	default:
		return notify.NewLog(os.Stderr, logger), noop, nil
	}
}
