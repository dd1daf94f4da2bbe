package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BerylCAtieno/synthsense-agent/internal/api"
	"github.com/BerylCAtieno/synthsense-agent/internal/chat"
	"github.com/BerylCAtieno/synthsense-agent/internal/config"
	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
	"github.com/BerylCAtieno/synthsense-agent/internal/simulation"
	"github.com/BerylCAtieno/synthsense-agent/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := llm.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if c, ok := gateway.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close llm client", zap.Error(err))
			}
		}()
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	handler := api.NewHandler(
		simulation.NewSimulator(gateway, cfg.BatchSize, logger),
		persona.NewGenerator(gateway, logger),
		chat.NewService(gateway, st, logger),
		st,
		cfg.DefaultCohortSize,
		logger,
	)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(handler),
	}

	logger.Info("SynthSense agent starting",
		zap.String("port", cfg.Port),
		zap.String("agent_card", "http://localhost:"+cfg.Port+"/.well-known/agent.json"),
		zap.String("a2a_endpoint", "http://localhost:"+cfg.Port+"/a2a/simulate"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore uses Redis when REDIS_ADDR is set and memory otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, results are kept in memory")
		return store.NewMemory(), nil
	}
	st, err := store.NewRedis(ctx, store.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.ResultTTL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	return st, nil
}
