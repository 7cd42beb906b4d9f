package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voicespec/internal/pipeline"
	"voicespec/internal/queue"
	"voicespec/internal/storage"
	"voicespec/internal/transcribe"
	"voicespec/pkg/cache"
	"voicespec/pkg/logger"
	"voicespec/pkg/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// progressTTL bounds how long run status lingers in the cache after the
// worker stops updating it.
const progressTTL = time.Hour

// PipelineFactory builds a fresh pipeline for one run. Each task gets its
// own instance so concurrent workers never share run state.
type PipelineFactory func(observer pipeline.Observer) (*pipeline.Pipeline, error)

// ResultPublisher reports terminal outcomes back to the results queue.
type ResultPublisher interface {
	PublishResult(result *queue.PipelineResult) error
}

type Processor struct {
	db          *storage.PostgresStorage
	cache       cache.Cache
	results     ResultPublisher
	newPipeline PipelineFactory
	httpClient  *http.Client
}

// NewProcessor creates a worker processor. db, cache and results are
// optional; a nil value disables that side channel.
func NewProcessor(
	newPipeline PipelineFactory,
	db *storage.PostgresStorage,
	cacheClient cache.Cache,
	results ResultPublisher,
) *Processor {
	return &Processor{
		db:          db,
		cache:       cacheClient,
		results:     results,
		newPipeline: newPipeline,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ProcessTask runs the full pipeline for one queued task
func (p *Processor) ProcessTask(taskData []byte) error {
	var task queue.PipelineTask
	if err := json.Unmarshal(taskData, &task); err != nil {
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.TaskID == "" {
		task.TaskID = uuid.New().String()
	}

	logger.Info("Processing pipeline task",
		zap.String("task_id", task.TaskID),
		zap.String("audio_url", task.AudioURL))

	ctx := context.Background()

	run := model.NewRun(task.TaskID)
	p.saveRun(ctx, run, p.db.CreateRun)

	audio, err := p.downloadAudio(task.AudioURL)
	if err != nil {
		p.handleRunError(ctx, run, task.TaskID, "download_failure", fmt.Sprintf("Failed to download audio: %v", err))
		return err
	}

	logger.Info("Audio downloaded",
		zap.String("task_id", task.TaskID),
		zap.Int("size", len(audio)))

	observer := &runObserver{cache: p.cache, runID: task.TaskID}
	pipe, err := p.newPipeline(observer)
	if err != nil {
		p.handleRunError(ctx, run, task.TaskID, "pipeline_failure", fmt.Sprintf("Failed to build pipeline: %v", err))
		return err
	}

	run.SetInProgress("")
	p.saveRun(ctx, run, p.db.UpdateRun)

	result, err := pipe.Run(ctx, audio)
	status := pipe.Status()
	if status.Filename != "" {
		filename := status.Filename
		run.AudioKey = &filename
	}
	if status.JobName != "" {
		jobName := status.JobName
		run.JobName = &jobName
	}
	if err != nil {
		kind := "pipeline_failure"
		message := err.Error()
		if status.Diagnostic != nil {
			kind = status.Diagnostic.Kind
			message = status.Diagnostic.Message
		}
		p.handleRunError(ctx, run, task.TaskID, kind, message)
		return err
	}

	run.TranscriptChars = len(result.Transcript)
	run.SetCompleted(result.ProjectName, result.ArtifactPath)
	p.saveRun(ctx, run, p.db.UpdateRun)

	p.publishResult(&queue.PipelineResult{
		TaskID:       task.TaskID,
		ProjectName:  result.ProjectName,
		ArtifactPath: result.ArtifactPath,
		Success:      true,
	})

	logger.Info("Task completed successfully",
		zap.String("task_id", task.TaskID),
		zap.String("project_name", result.ProjectName))

	return nil
}

// downloadAudio fetches the recording over HTTP
func (p *Processor) downloadAudio(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("task has no audio URL")
	}

	resp, err := p.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download audio: status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("downloaded audio is empty")
	}

	return data, nil
}

// handleRunError records a failed run everywhere it is observable
func (p *Processor) handleRunError(ctx context.Context, run *model.Run, taskID, kind, message string) {
	logger.Error("Task processing error",
		zap.String("task_id", taskID),
		zap.String("kind", kind),
		zap.String("error", message))

	run.SetError(kind, message)
	p.saveRun(ctx, run, p.db.UpdateRun)

	p.publishResult(&queue.PipelineResult{
		TaskID:       taskID,
		Success:      false,
		ErrorKind:    kind,
		ErrorMessage: message,
	})
}

func (p *Processor) saveRun(ctx context.Context, run *model.Run, save func(context.Context, *model.Run) error) {
	if p.db == nil {
		return
	}
	if err := save(ctx, run); err != nil {
		logger.Error("Failed to save run record",
			zap.String("run_id", run.ID),
			zap.Error(err))
	}
}

func (p *Processor) publishResult(result *queue.PipelineResult) {
	if p.results == nil {
		return
	}
	if err := p.results.PublishResult(result); err != nil {
		logger.Error("Failed to publish result",
			zap.String("task_id", result.TaskID),
			zap.Error(err))
	}
}

// runObserver mirrors pipeline state and poll progress into the cache so
// other processes can display live run status.
type runObserver struct {
	cache cache.Cache
	runID string
}

func (o *runObserver) OnTransition(status pipeline.Status) {
	if o.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.cache.SetWithTTL(ctx, cache.RunStatusKey(o.runID), string(status.State), progressTTL); err != nil {
		logger.Debug("Failed to cache run status", zap.Error(err))
	}
}

func (o *runObserver) OnProgress(snapshot transcribe.Snapshot) {
	if o.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.cache.SetWithTTL(ctx, cache.RunProgressKey(o.runID), snapshot, progressTTL); err != nil {
		logger.Debug("Failed to cache run progress", zap.Error(err))
	}
}
