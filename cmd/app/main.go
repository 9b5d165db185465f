// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"carechat/internal/config"
	"carechat/internal/domain/ports/adapter"
	"carechat/internal/domain/ports/repository"
	aiAdapters "carechat/internal/infra/adapters/ai"
	pg "carechat/internal/infra/db/postgres"
	"carechat/internal/infra/logging"
	"carechat/internal/infra/metrics"
	red "carechat/internal/infra/redis"
	"carechat/internal/infra/security"
	"carechat/internal/infra/web"
	"carechat/internal/infra/worker"
	"carechat/internal/prompt"
	"carechat/internal/ratelimit"
	"carechat/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode (console logs, relaxed redaction)")
	flag.Parse()

	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Encryption at rest (optional) ----
	var encSvc *security.EncryptionService
	if cfg.Security.EncryptionKey != "" {
		encSvc, err = security.NewEncryptionService(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption")
		}
	} else {
		logger.Warn().Msg("security.encryption_key not set, messages stored as plaintext")
	}

	var store repository.MessageStore = pg.NewMessageRepo(pool, encSvc)

	// ---- Rate limit store: Redis when configured, else per-instance memory ----
	var limits ratelimit.Store
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		limits = red.NewRateLimitStore(redisClient)
		logger.Info().Msg("rate limiting backed by redis")
	} else {
		limits = ratelimit.NewMemoryStore()
		logger.Warn().Msg("redis.url not set, rate limits are per-instance")
	}

	// ---- Completion provider ----
	var provider adapter.CompletionProvider
	switch cfg.AI.Provider {
	case "openai":
		provider, err = aiAdapters.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.Model)
	case "gemini":
		provider, err = aiAdapters.NewGeminiProvider(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model)
	case "mock":
		provider = aiAdapters.NewMockProvider()
	}
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.AI.Provider).Msg("ai provider")
	}
	provider = aiAdapters.NewLimitedProvider(provider, cfg.AI.ConcurrentLimit)
	upstream := aiAdapters.NewClient(provider, cfg.AI, logger)
	logger.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("ai provider ready")

	// ---- Prompts ----
	prompts, err := prompt.NewBuilder()
	if err != nil {
		logger.Fatal().Err(err).Msg("prompt locales")
	}

	// ---- Worker pool for detached writes ----
	pool2 := worker.NewPool(4)
	pool2.Start(ctx)
	defer pool2.Stop()

	// ---- Use case + HTTP ----
	chatUC := usecase.NewChatUseCase(store, prompts, upstream, limits, cfg.RateLimit, pool2, logger, cfg.Runtime.Dev)
	auth := web.NewAuthManager(cfg.Auth)
	srv := web.NewServer(chatUC, auth, cfg.Server, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
