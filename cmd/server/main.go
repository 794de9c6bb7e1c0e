package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"shopledger/internal/config"
	"shopledger/internal/httpapi"
	"shopledger/internal/ledger"
	"shopledger/internal/notify"
	"shopledger/internal/store"
	filestore "shopledger/internal/store/file"
	"shopledger/internal/store/memory"
	mysqlstore "shopledger/internal/store/mysql"
	pgstore "shopledger/internal/store/postgres"
	redisstore "shopledger/internal/store/redis"
)

func main() {
	cfg := config.Load()
	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loc, _ := loadLocation(cfg.Timezone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 3)

	kv, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store unavailable", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := notify.NewHub(cfg.AllowedOrigin, logger)
	closers = append(closers, hub.Close)
	fanout := notify.Fanout{hub, notify.NewMetrics(reg)}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Warn("kafka unavailable, events stay local", zap.Strings("brokers", cfg.KafkaBrokers), zap.Error(err))
		} else {
			fanout = append(fanout, publisher)
			closers = append(closers, publisher.Close)
			logger.Info("events: kafka", zap.String("topic", cfg.KafkaTopic))
		}
	}

	engine, err := ledger.Open(ctx, kv, ledger.Options{
		Logger:   logger,
		Notifier: fanout,
		Location: loc,
	})
	if err != nil {
		logger.Fatal("ledger unavailable", zap.Error(err))
	}

	api := httpapi.New(engine, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        logger,
		Registerer:    reg,
		Gatherer:      reg,
		Feed:          hub,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("shop ledger listening", zap.String("addr", cfg.Address()), zap.String("backend", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Development() {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
}

// openStore builds the configured backend. The returned closer may be nil.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.KV, func() error, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("store: in-memory, the ledger is lost on restart")
		return memory.New(), nil, nil
	case config.BackendFile:
		fs, err := filestore.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store: file", zap.String("dir", fs.Dir()))
		return fs, nil, nil
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store: postgres")
		return pg, pg.Close, nil
	case config.BackendMySQL:
		my, err := mysqlstore.New(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store: mysql")
		return my, my.Close, nil
	case config.BackendRedis:
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKeyPrefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, err
		}
		logger.Info("store: redis", zap.String("addr", cfg.RedisAddr))
		return rs, rs.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func validateConfig(cfg config.Config) error {
	switch cfg.StoreBackend {
	case config.BackendMemory:
	case config.BackendFile:
		if strings.TrimSpace(cfg.DataDir) == "" {
			return fmt.Errorf("DATA_DIR must be set for the file backend")
		}
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres backend")
		}
	case config.BackendMySQL:
		if cfg.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN must be set for the mysql backend")
		}
	case config.BackendRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set for the redis backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND %q is not one of memory, file, postgres, mysql, redis", cfg.StoreBackend)
	}
	if _, err := zap.ParseAtomicLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if _, err := loadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("LEDGER_TIMEZONE: %w", err)
	}
	if len(cfg.KafkaBrokers) > 0 && strings.TrimSpace(cfg.KafkaTopic) == "" {
		return fmt.Errorf("KAFKA_TOPIC must be set when KAFKA_BROKERS is")
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
