// Entry point for the worker that applies device check-in/out events.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"attendance.service/internal/bootstrap"
	"attendance.service/internal/config"
	"attendance.service/internal/core"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/worker"
	"attendance.service/internal/worker/ingest"
	"attendance.service/pkg/aws"
	"attendance.service/pkg/logger"
	"attendance.service/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Setup(cfg.IsLocalDev, "attendance-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, "attendance-worker", cfg.OTELEndpoint, cfg.IsLocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

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
	sqsClient := sqs.NewFromConfig(awsCfg)

	producer := messaging.NewSQSProducer(sqsClient, cfg.PayrollSQSQueueURL, cfg.EmailSQSQueueURL)
	service := core.NewAttendanceService(storage.Records, producer, stores.Settings, stores.Calendar)

	app := worker.NewWorker(sqsClient, cfg.IngestSQSQueueURL, ingest.NewProcessor(service))
	app.Concurrency = cfg.WorkerConcurrency

	// Start returns once ctx is canceled and in-flight events are done.
	app.Start(ctx)
	log.Info().Msg("Worker exited gracefully")
}
