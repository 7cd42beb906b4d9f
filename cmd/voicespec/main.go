package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"voicespec/internal/config"
	"voicespec/internal/pipeline"
	"voicespec/internal/project"
	"voicespec/internal/specgen"
	"voicespec/internal/storage"
	"voicespec/internal/transcribe"
	"voicespec/pkg/logger"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"go.uber.org/zap"
)

// consoleObserver prints run state and transcription progress to stderr.
type consoleObserver struct{}

func (consoleObserver) OnTransition(status pipeline.Status) {
	fmt.Fprintf(os.Stderr, "state: %s\n", status.State)
}

func (consoleObserver) OnProgress(snapshot transcribe.Snapshot) {
	fmt.Fprintf(os.Stderr, "transcribing: %3.0f%% (poll %d, elapsed %s)\n",
		snapshot.Progress*100, snapshot.PollCount, snapshot.Elapsed.Round(0))
}

func main() {
	filePath := flag.String("file", "", "path to the audio recording to process")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: voicespec -file <recording.wav>")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
		return
	}

	audio, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Fatal("Failed to read audio file", zap.Error(err))
		return
	}

	ctx := context.Background()

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

	pipe, err := pipeline.New(pipeline.Deps{
		Uploader:  store,
		Submitter: transcribeClient,
		Poller:    transcribe.NewPoller(transcribeClient, cfg.Transcribe.PollInterval, cfg.Transcribe.PollTimeout),
		Fetcher:   transcribe.NewFetcher(transcribeClient, store),
		Generator: specgen.NewGenerator(
			specgen.NewBedrockCompleter(bedrockruntime.NewFromConfig(awsCfg)),
			cfg.Bedrock.ModelID,
			specgen.Options{
				MaxTokens:   cfg.Bedrock.MaxTokens,
				Temperature: cfg.Bedrock.Temperature,
			},
		),
		Persister: project.NewPersister(cfg.Projects.Root),
		Mirror:    store,
		Observer:  consoleObserver{},
		Bucket:    cfg.S3.Bucket,
	})
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
		return
	}

	result, err := pipe.Run(ctx, audio)
	if err != nil {
		status := pipe.Status()
		if status.Diagnostic != nil {
			fmt.Fprintf(os.Stderr, "error [%s]: %s\n", status.Diagnostic.Kind, status.Diagnostic.Message)
			for _, line := range status.Diagnostic.Trace {
				fmt.Fprintf(os.Stderr, "  caused by: %s\n", line)
			}
		}
		os.Exit(1)
	}

	fmt.Printf("project: %s\n", result.ProjectName)
	fmt.Printf("document: %s\n", result.ArtifactPath)
}
