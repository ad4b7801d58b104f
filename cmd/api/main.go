// Entry point for REST API
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"attendance.service/internal/api"
	"attendance.service/internal/bootstrap"
	"attendance.service/internal/config"
	"attendance.service/internal/core"
	"attendance.service/internal/ports/messaging"
	"attendance.service/pkg/aws"
	"attendance.service/pkg/logger"
	"attendance.service/pkg/telemetry"
)

const devJWTSecret = "local-dev-secret"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Setup(cfg.IsLocalDev, "attendance-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, "attendance-api", cfg.OTELEndpoint, cfg.IsLocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	secret := cfg.JWTSecret
	if secret == "" {
		if !cfg.IsLocalDev {
			log.Fatal().Msg("JWT_SECRET is required")
		}
		log.Warn().Msg("JWT_SECRET not set; using the local development secret")
		secret = devJWTSecret
	}

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening storage")
	}
	defer storage.Close()

	stores, err := bootstrap.LoadStores(ctx, cfg, storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid attendance configuration")
	}
	go stores.Watch(ctx, storage, time.Minute)

	awsCfg, err := aws.NewAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}
	producer := messaging.NewSQSProducer(sqs.NewFromConfig(awsCfg), cfg.PayrollSQSQueueURL, cfg.EmailSQSQueueURL)

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid trusted proxy list")
	}

	router := api.NewRouter(api.Deps{
		Attendance:     core.NewAttendanceService(storage.Records, producer, stores.Settings, stores.Calendar),
		Calendar:       core.NewCalendarService(storage.Calendar, stores.Calendar),
		Settings:       core.NewSettingsService(storage.Settings, stores.Settings),
		JWTSecret:      []byte(secret),
		SeedFile:       cfg.CalendarSeedFile,
		TrustedProxies: proxies,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           otelhttp.NewHandler(router, "api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("API Service starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	// In-flight requests get 5 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
