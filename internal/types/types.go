package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusSkipped    = "SKIPPED"
	StatusFailed     = "FAILED"
)

// Backend kind constants
const (
	BackendWhisper = "whisper"
	BackendGoogle  = "google"
)

// TranscriptionResult represents the output of a completed transcription run
type TranscriptionResult struct {
	JobID        string
	Text         string
	Language     string
	DurationMS   int64
	SegmentCount int
	Backend      string
	WordCount    int
	ProcessedAt  time.Time
	LocalPath    string
}

// ProgressUpdate is a single progress notification for a running job
type ProgressUpdate struct {
	JobID     string `json:"job_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Message   string `json:"message"`
	Done      bool   `json:"done"`
}
