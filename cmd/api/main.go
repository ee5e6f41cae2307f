package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"aichat/internal/generation"
	"aichat/internal/history"
	"aichat/internal/history/kvstore"
	"aichat/internal/http/handlers"
	httpapi "aichat/internal/http/httpapi"
	"aichat/internal/infra"
	"aichat/internal/infra/geoip"
	"aichat/internal/middleware"
	"aichat/internal/providers/dashscope"
	"aichat/internal/transform"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	kv, cleanup, err := buildHistoryBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open history backend")
	}
	defer cleanup()
	store := history.NewStore(kv, history.Options{})

	imageClient := dashscope.NewClient(dashscope.Options{
		APIKey:         cfg.DashScopeAPIKey,
		BaseURL:        cfg.DashScopeBaseURL,
		Model:          cfg.ImageModel,
		DefaultSize:    cfg.ImageDefaultSize,
		Logger:         &logger,
		RequestTimeout: cfg.UpstreamTimeout,
	})
	runner := generation.NewRunner(imageClient, imageClient, generation.Options{
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxPollAttempts,
		Logger:       &logger,
	})
	chatClient := dashscope.NewChatClient(dashscope.ChatOptions{
		APIKey:         cfg.DashScopeAPIKey,
		BaseURL:        cfg.DashScopeChatURL,
		Model:          cfg.ChatModel,
		RequestTimeout: cfg.UpstreamTimeout,
	})
	forwarder, err := transform.NewForwarder(transform.Options{
		TargetURL:      cfg.TransformURL,
		Logger:         &logger,
		RequestTimeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build analysis forwarder")
	}

	var countries middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		countries = resolver
	}

	app := &handlers.App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Runner:    runner,
		Chat:      chatClient,
		Forwarder: forwarder,
	}
	router := httpapi.NewRouter(app, cfg, logger, countries)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != os.ErrClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// buildHistoryBackend selects the KV persistence surface from configuration.
// The returned cleanup closes whatever resources the backend holds.
func buildHistoryBackend(ctx context.Context, cfg *infra.Config, logger infra.Logger) (kvstore.KV, func(), error) {
	noop := func() {}
	switch cfg.HistoryBackend {
	case "memory":
		return kvstore.NewMemory(), noop, nil
	case "file":
		kv, err := kvstore.NewFile(cfg.HistoryPath)
		if err != nil {
			return nil, noop, err
		}
		return kv, noop, nil
	case "bolt":
		kv, err := kvstore.NewBolt(cfg.HistoryPath + ".db")
		if err != nil {
			return nil, noop, err
		}
		return kv, func() { _ = kv.Close() }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return kvstore.NewRedis(client), func() { _ = client.Close() }, nil
	case "postgres":
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		kv, err := kvstore.NewPostgres(ctx, infra.NewSQLRunner(pool, logger))
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return kv, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported history backend %q", cfg.HistoryBackend)
	}
}
