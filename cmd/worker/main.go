package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artigraph/backend/internal/app"
	"github.com/artigraph/backend/internal/queue"
	"github.com/artigraph/backend/internal/storage"
	"github.com/artigraph/backend/pkg/leaselock"
	"github.com/artigraph/backend/pkg/logger"
	s3loader "github.com/artigraph/backend/pkg/loader/s3"
	"github.com/artigraph/backend/pkg/store"
	"github.com/artigraph/backend/pkg/store/pgx"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func main() {
	cfg := app.LoadConfig()
	app.InitLogger(cfg, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiClient, err := app.NewAIClient(cfg.AI)
	if err != nil {
		logger.Fatal("Could not create AI client", "err", err)
	}

	graphStorage, err := app.OpenGraphStorage(ctx, cfg.Neo4j)
	if err != nil {
		logger.Fatal("Unable to connect to Neo4j", "err", err)
	}
	defer graphStorage.Close(context.Background())

	// Postgres carries the run ledger and the artifact leases. Without it the
	// worker still runs, unguarded against concurrent redeliveries.
	var runs store.RunStorage
	var leases queue.Leaser
	if cfg.DatabaseURL != "" {
		if err := app.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
		pgConn, err := app.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer pgConn.Close()
		runs = pgx.NewRunDBStorageWithConnection(pgConn)
		leases = leaselock.New(pgConn)
	} else {
		logger.Warn("DATABASE_URL not set, running without run ledger and leases")
	}

	graphClient, err := app.NewGraphClient(cfg, runs)
	if err != nil {
		logger.Fatal("Could not create graph client", "err", err)
	}

	var s3Client *s3.Client
	if cfg.S3.Bucket != "" {
		s3Client, err = storage.NewS3Client(ctx, storage.NewArchiveParams{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
		})
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
	}

	p := &queue.Processor{
		Graph:  graphClient,
		AI:     aiClient,
		Store:  graphStorage,
		Leases: leases,
	}
	// One loader for all messages: retried deliveries of an artifact are
	// served from its bounded cache instead of S3.
	if s3Client != nil {
		p.Loader = s3loader.NewS3ArtifactLoaderWithClient(cfg.S3.Bucket, s3Client, 0)
	}

	conn, err := queue.Dial(cfg.RabbitMQ.URL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.ArtifactQueue}); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// prefetch=1: one artifact at a time
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := ch.Consume(
		queue.ArtifactQueue,
		queue.ArtifactQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.ArtifactQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.ArtifactQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.ArtifactQueue)
				return
			}
			startTime := time.Now()
			logger.Info("Received message", "queue", queue.ArtifactQueue)

			_ = queue.HandleDelivery(ctx, ch, msg, queue.ArtifactQueue, p)

			metrics := aiClient.GetMetrics()
			logger.Info(
				"AI Metrics",
				"input_tokens", metrics.InputTokens,
				"output_tokens", metrics.OutputTokens,
				"total_tokens", metrics.TotalTokens,
				"duration", formatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
			)
			logger.Info("Processing time", "duration", formatDuration(time.Since(startTime)))
			logger.Info("Waiting for next message")
			aiClient.ResetMetrics()
		}
	}
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
