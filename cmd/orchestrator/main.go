package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"draftkeeper/internal/config"
	"draftkeeper/internal/database"
	"draftkeeper/internal/logger"
	"draftkeeper/internal/orchestrator/downloads"
	"draftkeeper/internal/pgmq"
	"draftkeeper/internal/pubsub"
	"draftkeeper/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "downloads", "Orchestrator mode: downloads")
	flag.Parse()

	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.Open(ctx, cfg, database.DriverPQ, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pgmqClient := pgmq.New(db)
	logger.Info().Msg("PGMQ client initialized")

	var runErr error
	switch *mode {
	case "downloads":
		// Without a GCP project the orchestrator still maintains the counters.
		var pub downloads.Publisher
		if cfg.GCPProjectID != "" {
			p, err := pubsub.NewPublisher(ctx, cfg)
			if err != nil {
				logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
			}
			defer p.Close()
			pub = p
		} else {
			logger.Warn().Msg("GCP_PROJECT_ID not set, analytics events will not be published")
		}
		runErr = downloads.Run(ctx, logger, pgmqClient, repository.NewDraftRepo(db), pub, downloads.Options{
			Queue:         cfg.DownloadQueueName,
			Topic:         cfg.PubSubAnalyticsTopic,
			VisibilitySec: cfg.DownloadVisibilitySec,
			MaxMessages:   cfg.DownloadPollMaxMsg,
			PollSec:       cfg.DownloadPollTimeoutSec,
			MaxReads:      cfg.DownloadMaxReads,
		})
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}
