package queue

import "time"

// PipelineTask asks a worker to run the full pipeline over one recording.
// AudioURL must be fetchable by the worker over HTTP.
type PipelineTask struct {
	TaskID      string    `json:"task_id"`
	AudioURL    string    `json:"audio_url"`
	ContentType string    `json:"content_type,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PipelineResult reports a finished run back to whoever submitted the task.
type PipelineResult struct {
	TaskID       string `json:"task_id"`
	ProjectName  string `json:"project_name,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	Success      bool   `json:"success"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
