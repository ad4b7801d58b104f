package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"attendance.service/internal/bootstrap"
	"attendance.service/internal/config"
	"attendance.service/internal/core"
	"attendance.service/internal/worker"
	"attendance.service/internal/worker/email"
	"attendance.service/pkg/aws"
	"attendance.service/pkg/logger"
	"attendance.service/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Setup(cfg.IsLocalDev, "email-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, "email-worker", cfg.OTELEndpoint, cfg.IsLocalDev)
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

	awsCfg, err := aws.NewAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	emailService := core.NewSESEmailService(ses.NewFromConfig(awsCfg), cfg.EmailSender)
	processor := email.NewProcessor(emailService, storage.Records, cfg.EmailDomain)

	app := worker.NewWorker(sqs.NewFromConfig(awsCfg), cfg.EmailSQSQueueURL, processor)
	app.Concurrency = cfg.WorkerConcurrency

	app.Start(ctx)
	log.Info().Msg("Worker exited gracefully")
}
