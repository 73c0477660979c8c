package queue

import (
	"time"

	"github.com/kato04/Transcription-Summarization-App/internal/types"
)

// Job represents a transcription job
type Job struct {
	ID               string
	RequestName      string
	OriginalFilename string
	Language         string
	FilePath         string
	Status           string
	FailedSegment    int // -1 unless a segment failed
	Error            string
	Result           *types.TranscriptionResult
	CreatedAt        time.Time
}

// NewJob creates a new job with default values
func NewJob(id, requestName, originalFilename, language, filePath string) *Job {
	return &Job{
		ID:               id,
		RequestName:      requestName,
		OriginalFilename: originalFilename,
		Language:         language,
		FilePath:         filePath,
		Status:           types.StatusQueued,
		FailedSegment:    -1,
		CreatedAt:        time.Now(),
	}
}
