package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicespec/internal/config"
	"voicespec/internal/pipeline"
	"voicespec/internal/project"
	"voicespec/internal/queue"
	"voicespec/internal/specgen"
	"voicespec/internal/storage"
	"voicespec/internal/transcribe"
	"voicespec/internal/worker"
	"voicespec/pkg/cache"
	"voicespec/pkg/logger"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	debug := os.Getenv("DEBUG") == "true"
	if err := logger.Init(debug); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting voicespec worker service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize S3 storage
	store, err := storage.NewS3Store(ctx, storage.S3Options{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
		return
	}

	// Shared AWS config for the transcription and generation clients
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
		return
	}

	transcribeClient := transcribe.NewClient(
		awstranscribe.NewFromConfig(awsCfg),
		cfg.Transcribe.LanguageCode,
		cfg.Transcribe.MediaFormat,
	)
	poller := transcribe.NewPoller(transcribeClient, cfg.Transcribe.PollInterval, cfg.Transcribe.PollTimeout)
	fetcher := transcribe.NewFetcher(transcribeClient, store)

	generator := specgen.NewGenerator(
		specgen.NewBedrockCompleter(bedrockruntime.NewFromConfig(awsCfg)),
		cfg.Bedrock.ModelID,
		specgen.Options{
			MaxTokens:   cfg.Bedrock.MaxTokens,
			Temperature: cfg.Bedrock.Temperature,
		},
	)

	persister := project.NewPersister(cfg.Projects.Root)

	// Connect to database (optional run history)
	var db *storage.PostgresStorage
	if cfg.Postgres.DSN != "" {
		db, err = storage.NewPostgresStorage(cfg.Postgres.DSN)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
			return
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	// Initialize Redis cache (optional live progress)
	var redisCache cache.Cache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			24*time.Hour,
		)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
			return
		}
		defer rc.Close()
		redisCache = rc
		logger.Info("Redis cache connection established")
	}

	// Connect to RabbitMQ
	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		return
	}
	defer rabbitMQ.Close()

	logger.Info("RabbitMQ connection established")

	factory := func(observer pipeline.Observer) (*pipeline.Pipeline, error) {
		return pipeline.New(pipeline.Deps{
			Uploader:  store,
			Submitter: transcribeClient,
			Poller:    poller,
			Fetcher:   fetcher,
			Generator: generator,
			Persister: persister,
			Mirror:    store,
			Observer:  observer,
			Bucket:    cfg.S3.Bucket,
		})
	}

	processor := worker.NewProcessor(factory, db, redisCache, rabbitMQ)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	go func() {
		logger.Info("Starting to consume messages from queue")
		if err := rabbitMQ.Consume(queue.QueueNamePipelineRequests, processor.ProcessTask); err != nil {
			logger.Error("Failed to consume messages", zap.Error(err))
			cancel()
		}
	}()

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Worker service shutdown complete")
}
