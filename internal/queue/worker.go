package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/kato04/Transcription-Summarization-App/internal/chunker"
	"github.com/kato04/Transcription-Summarization-App/internal/storage"
	"github.com/kato04/Transcription-Summarization-App/internal/transcription"
	"github.com/kato04/Transcription-Summarization-App/internal/types"
)

// WorkerPool manages a pool of workers processing transcription jobs
type WorkerPool struct {
	jobQueue        chan *Job
	workerCount     int
	backend         transcription.Backend
	localStorage    *storage.LocalStorage
	db              *storage.MetadataDB
	hub             *Hub
	tempDir         string
	chunkLengthMS   int64
	defaultLanguage string

	// normalize converts an upload to 16kHz mono WAV before chunking.
	// Defaults to transcription.NormalizeAudio.
	normalize func(ctx context.Context, inputPath, tempDir string) (string, error)

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(
	workerCount int,
	backend transcription.Backend,
	localStorage *storage.LocalStorage,
	db *storage.MetadataDB,
	hub *Hub,
	tempDir string,
	chunkLengthMS int64,
	defaultLanguage string,
) *WorkerPool {
	if chunkLengthMS <= 0 {
		chunkLengthMS = chunker.DefaultChunkLengthMS
	}
	return &WorkerPool{
		jobQueue:        make(chan *Job, 100), // Buffer of 100 jobs
		workerCount:     workerCount,
		backend:         backend,
		localStorage:    localStorage,
		db:              db,
		hub:             hub,
		tempDir:         tempDir,
		chunkLengthMS:   chunkLengthMS,
		defaultLanguage: defaultLanguage,
		normalize:       transcription.NormalizeAudio,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	if wp.jobs == nil {
		wp.jobs = make(map[string]*Job)
	}
	wp.mu.Unlock()

	log.Printf("Starting worker pool with %d workers (backend: %s)", wp.workerCount, wp.backend.Name())
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// Hub returns the progress hub for this pool
func (wp *WorkerPool) Hub() *Hub {
	return wp.hub
}

// EnqueueJob adds a job to the queue
func (wp *WorkerPool) EnqueueJob(job *Job) {
	wp.setJobStatus(job, types.StatusQueued)
	wp.mu.Lock()
	if wp.jobs == nil {
		wp.jobs = make(map[string]*Job)
	}
	wp.jobs[job.ID] = job
	wp.mu.Unlock()

	wp.jobQueue <- job
	log.Printf("Job %s enqueued (file: %s, name: %s)", job.ID, job.OriginalFilename, job.RequestName)
}

// GetJob returns a snapshot of a tracked job, or nil if unknown.
func (wp *WorkerPool) GetJob(jobID string) *Job {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	job, ok := wp.jobs[jobID]
	if !ok {
		return nil
	}
	snapshot := *job
	return &snapshot
}

func (wp *WorkerPool) setJobStatus(job *Job, status string) {
	wp.mu.Lock()
	job.Status = status
	wp.mu.Unlock()
}

func (wp *WorkerPool) failJob(job *Job, segment int, err error) {
	wp.mu.Lock()
	job.Status = types.StatusFailed
	job.FailedSegment = segment
	job.Error = err.Error()
	wp.mu.Unlock()

	wp.hub.Publish(types.ProgressUpdate{
		JobID:   job.ID,
		Message: err.Error(),
		Done:    true,
	})
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		// Panic recovery
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					wp.failJob(job, -1, fmt.Errorf("worker panic: %v", r))
					wp.cleanupTempFile(job.FilePath)
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

// processJob handles the complete transcription pipeline
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	log.Printf("Worker %d: Processing job %s", workerID, job.ID)
	wp.setJobStatus(job, types.StatusProcessing)
	ctx := context.Background()

	defer wp.cleanupTempFile(job.FilePath)

	// Step 1: Normalize audio to 16kHz mono WAV
	normalizedPath, err := wp.normalize(ctx, job.FilePath, wp.tempDir)
	if err != nil {
		log.Printf("Worker %d: Audio normalization failed for job %s: %v", workerID, job.ID, err)
		wp.failJob(job, -1, err)
		return
	}
	defer wp.cleanupTempFile(normalizedPath)

	// Step 2: Decode the normalized track
	track, err := chunker.LoadTrack(normalizedPath)
	if err != nil {
		convErr := &transcription.ConversionError{Path: normalizedPath, Err: err}
		log.Printf("Worker %d: Track decode failed for job %s: %v", workerID, job.ID, convErr)
		wp.failJob(job, -1, convErr)
		return
	}

	// Step 3: Chunked transcription with progress fan-out
	language := job.Language
	if language == "" {
		language = wp.defaultLanguage
	}

	tr := chunker.New(wp.backend, wp.tempDir, chunker.Options{
		ChunkLengthMS: wp.chunkLengthMS,
		Language:      language,
		Progress: func(completed, total int, message string) {
			wp.hub.Publish(types.ProgressUpdate{
				JobID:     job.ID,
				Completed: completed,
				Total:     total,
				Message:   message,
			})
		},
	})

	text, err := tr.Transcribe(ctx, track)
	if err != nil {
		segment := -1
		var segErr *chunker.SegmentError
		if errors.As(err, &segErr) {
			segment = segErr.Index
		}
		log.Printf("Worker %d: Transcription failed for job %s: %v", workerID, job.ID, err)
		wp.failJob(job, segment, err)
		return
	}

	durationMS := track.DurationMS()
	segmentCount := chunker.SegmentCount(durationMS, wp.chunkLengthMS)

	// Zero-duration audio produces an empty transcript with an explicit
	// skipped status; nothing is stored.
	if segmentCount == 0 {
		log.Printf("Worker %d: Job %s skipped (empty audio)", workerID, job.ID)
		wp.setJobStatus(job, types.StatusSkipped)
		wp.hub.Publish(types.ProgressUpdate{
			JobID:   job.ID,
			Message: "skipped",
			Done:    true,
		})
		return
	}

	result := &types.TranscriptionResult{
		JobID:        job.ID,
		Text:         text,
		Language:     language,
		DurationMS:   durationMS,
		SegmentCount: segmentCount,
		Backend:      wp.backend.Name(),
		WordCount:    len(strings.Fields(text)),
		ProcessedAt:  time.Now(),
	}

	// Step 4: Save transcript locally
	localPath, err := wp.localStorage.SaveTranscript(job.OriginalFilename, result)
	if err != nil {
		log.Printf("Worker %d: Local save failed for job %s: %v", workerID, job.ID, err)
		wp.failJob(job, -1, fmt.Errorf("local save failed: %w", err))
		return
	}
	result.LocalPath = localPath

	// Step 5: Save metadata to database
	if wp.db != nil {
		if err := wp.db.SaveTranscript(job.RequestName, job.OriginalFilename, result); err != nil {
			log.Printf("Worker %d: Database save failed: %v", workerID, err)
		}
	}

	wp.mu.Lock()
	job.Status = types.StatusCompleted
	job.Result = result
	wp.mu.Unlock()

	wp.hub.Publish(types.ProgressUpdate{
		JobID:     job.ID,
		Completed: segmentCount,
		Total:     segmentCount,
		Message:   "completed",
		Done:      true,
	})

	log.Printf("Worker %d: Job %s completed (%d segments, %d words, saved to %s)",
		workerID, job.ID, segmentCount, result.WordCount, localPath)
}

// cleanupTempFile removes a temporary file
func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", filePath, err)
	}
}
