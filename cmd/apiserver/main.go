// Command apiserver runs the verification engine's HTTP façade: request
// validation, auth, and a thin translation layer over the engine's store and
// queue (see applications/httpapi). Grounded on the teacher's cmd/gateway
// entry point, stripped of its Marble/mTLS mesh bootstrapping since this
// façade is a conventional internet-facing API, not a service-mesh sidecar.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/verifyengine/core/applications/httpapi"
	"github.com/verifyengine/core/infrastructure/auth"
	"github.com/verifyengine/core/infrastructure/config"
	"github.com/verifyengine/core/infrastructure/database/postgres"
	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/infrastructure/metrics"
	"github.com/verifyengine/core/infrastructure/queue"
)

func main() {
	cfg := config.Load()
	logger := logging.New("verification-apiserver", cfg.LogLevel, cfg.LogFormat)

	store, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("CRITICAL: connect postgres: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	q := queue.New(redisClient, cfg.QueueName)

	keyStore := auth.NewStaticKeyStoreFromConfig(cfg)
	apiKeyAuthn := auth.NewAPIKeyAuthenticator(keyStore, 5*time.Minute)
	bearerAuthn := auth.NewBearerAuthenticator(cfg.SecretKey)

	var m *metrics.Metrics
	if metrics.Enabled() {
		m = metrics.Init("verification-apiserver")
	}

	deps := httpapi.Deps{Store: store, Dispatcher: q, Queue: q, Logger: logger}
	router := httpapi.NewRouter(deps, httpapi.Authenticators{APIKey: apiKeyAuthn, Bearer: bearerAuthn}, m, config.SplitAndTrimCSV(config.GetEnv("CORS_ALLOWED_ORIGINS", "")))

	srv := &http.Server{
		Addr:         config.GetEnv("HTTP_ADDR", ":8080"),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(ctx, "apiserver starting", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("apiserver failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "apiserver shutdown error", err, nil)
	}
	logger.Info(ctx, "apiserver stopped", nil)
}
