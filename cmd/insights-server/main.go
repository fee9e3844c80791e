// cmd/insights-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-insights/internal/aiquery"
	"pos-insights/internal/analytics"
	"pos-insights/internal/common/config"
	"pos-insights/internal/common/database"
	"pos-insights/internal/common/logger"
	"pos-insights/internal/common/observability"
	"pos-insights/internal/openaiclient"
	"pos-insights/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting pos-insights", map[string]interface{}{
		"environment": cfg.App.Environment,
		"version":     cfg.App.Version,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var connErr error
		pg, connErr = database.NewPostgres(cfg.Database.Postgres)
		if connErr != nil {
			return connErr
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return pg.Ping(ctx)
	}, 5, 2*time.Second)
	if err != nil {
		log.Error("failed to connect to postgres", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer pg.Close()

	// The response cache prefers Redis so replicas share entries, and
	// falls back to the in-process LRU when Redis is disabled.
	cacheTTL := time.Duration(cfg.AIQuery.CacheTTL) * time.Second
	var cache aiquery.ResponseCache
	if cfg.Database.Redis.Enabled {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var connErr error
			rc, connErr = database.NewRedis(cfg.Database.Redis)
			if connErr != nil {
				return connErr
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return rc.Ping(ctx)
		}, 5, 2*time.Second)
		if err != nil {
			log.Error("failed to connect to redis", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		defer rc.Close()
		cache = aiquery.NewRedisCache(rc.GetClient(), cacheTTL)
	} else {
		cache = aiquery.NewMemoryCache(cfg.AIQuery.CacheMaxEntries, cacheTTL)
	}

	sqlCompleter := openaiclient.New(cfg.OpenAI, time.Duration(cfg.OpenAI.GenerationTimeout)*time.Millisecond, log)
	insightCompleter := openaiclient.New(cfg.OpenAI, time.Duration(cfg.OpenAI.InsightTimeout)*time.Millisecond, log)

	generator := aiquery.NewGenerator(sqlCompleter, cfg.OpenAI.SQLTemperature, log)
	composer := aiquery.NewComposer(insightCompleter, cfg.OpenAI.InsightTemperature, cfg.OpenAI.InsightMaxTokens, log)
	executor := aiquery.NewExecutor(pg.GetDB(), time.Duration(cfg.AIQuery.ExecutionTimeout)*time.Millisecond, log)

	aiService := aiquery.NewService(cache, generator, executor, composer, cacheTTL, obs, log)
	store := analytics.NewStore(pg.GetDB(), log)
	limiter := aiquery.NewRateLimiter(cfg.AIQuery.RateLimit, time.Duration(cfg.AIQuery.RateLimitWindow)*time.Second)

	srv := server.New(cfg.Server, aiService, store, limiter, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info("shutdown signal received", map[string]interface{}{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	log.Info("shutdown complete", nil)
}

// retryWithBackoff retries operation with exponential delay between
// attempts. Startup dependencies come up in arbitrary order under
// container orchestration, so initial connection failures are routine.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration) error {
	var err error
	delay := initialDelay
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if attempt < maxRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("operation failed after %d attempts: %w", maxRetries, err)
}
