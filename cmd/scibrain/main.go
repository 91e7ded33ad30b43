package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"scibrain/internal/app"
	"scibrain/internal/config"
	"scibrain/internal/server"
	"scibrain/internal/util"
	"scibrain/pkg/ai"
	"scibrain/pkg/kv"
	"scibrain/pkg/storage"
	"scibrain/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, redisClient := openBackend(ctx, cfg, logger)
	defer backend.Close()

	appCfg := app.Config{
		Store:      store.New(backend),
		SessionTTL: sessionTTL,
	}
	if gen, err := ai.NewTextGenerator(ai.ProviderConfig{
		Provider: cfg.AIProvider,
		Model:    cfg.AIModel,
		APIKey:   cfg.AIAPIKey,
		BaseURL:  cfg.AIBaseURL,
	}); err != nil {
		logger.Warn("study generation disabled", "provider", cfg.AIProvider, "err", err)
	} else {
		appCfg.Generator = ai.NewStudyGenerator(gen, cfg.AIModel)
	}

	if cfg.MinioEndpoint != "" {
		objects, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Warn("upload archive disabled", "endpoint", cfg.MinioEndpoint, "err", err)
		} else {
			appCfg.Objects = objects
		}
	}

	appCore, err := app.New(appCfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		Redis:                    redisClient,
		BackendName:              kv.Name(backend),
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		MaxUploadBytes:           cfg.MaxUploadBytes,
		TrustedProxyCIDRs:        cfg.TrustedProxyCIDRs,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	slog.Info("server listening", "addr", addr, "backend", kv.Name(backend))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}

// openBackend prefers Redis when configured and reachable, otherwise the
// in-process backend.
func openBackend(ctx context.Context, cfg config.FileConfig, logger *slog.Logger) (kv.Backend, redis.UniversalClient) {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, using in-memory storage")
		return kv.NewMemoryBackend(), nil
	}
	rb, err := kv.NewRedisBackend(kv.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis backend unavailable, using in-memory storage", "err", err)
		return kv.NewMemoryBackend(), nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rb.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, using in-memory storage", "addr", cfg.RedisAddr, "err", err)
		_ = rb.Close()
		return kv.NewMemoryBackend(), nil
	}
	return rb, rb.Client()
}
