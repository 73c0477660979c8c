package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/kato04/Transcription-Summarization-App/internal/storage"
	"github.com/kato04/Transcription-Summarization-App/internal/types"
)

// writeWAV writes a 1kHz mono 16-bit WAV so one frame equals one
// millisecond of audio.
func writeWAV(t *testing.T, dir string, frames int) string {
	t.Helper()
	path := filepath.Join(dir, "input.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	enc := wav.NewEncoder(f, 1000, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 1000},
		SourceBitDepth: 16,
		Data:           make([]int, frames),
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

// scriptedBackend returns canned texts per segment and fails at a fixed
// segment index when failAt >= 0.
type scriptedBackend struct {
	texts  []string
	failAt int
	calls  int
}

func (b *scriptedBackend) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	i := b.calls
	b.calls++
	if b.failAt >= 0 && i == b.failAt {
		return "", fmt.Errorf("backend rejected segment %d", i)
	}
	if i < len(b.texts) {
		return b.texts[i], nil
	}
	return "", nil
}

func (b *scriptedBackend) Name() string { return "scripted" }

func newTestPool(t *testing.T, backend *scriptedBackend, outputDir string) *WorkerPool {
	t.Helper()
	wp := NewWorkerPool(1, backend, storage.NewLocalStorage(outputDir), nil, NewHub(), t.TempDir(), 100, "")
	// Uploads in these tests are already 1kHz mono WAV; skip ffmpeg.
	wp.normalize = func(ctx context.Context, inputPath, tempDir string) (string, error) {
		return inputPath, nil
	}
	return wp
}

func drainUntilDone(t *testing.T, updates <-chan types.ProgressUpdate) types.ProgressUpdate {
	t.Helper()
	for update := range updates {
		if update.Done {
			return update
		}
	}
	t.Fatal("subscription closed without a Done update")
	return types.ProgressUpdate{}
}

func TestProcessJob_Completed(t *testing.T) {
	backend := &scriptedBackend{texts: []string{"alpha", "beta", "gamma"}, failAt: -1}
	outputDir := t.TempDir()
	wp := newTestPool(t, backend, outputDir)

	job := NewJob("job-ok", "meeting", "meeting.wav", "", writeWAV(t, t.TempDir(), 250))
	wp.EnqueueJob(job)

	updates, cancel := wp.Hub().Subscribe(job.ID)
	defer cancel()

	wp.processJob(0, job)

	got := wp.GetJob(job.ID)
	if got.Status != types.StatusCompleted {
		t.Fatalf("status = %q, want %q (error: %s)", got.Status, types.StatusCompleted, got.Error)
	}
	if got.Result == nil || got.Result.Text != "alpha beta gamma" {
		t.Errorf("result = %+v, want text %q", got.Result, "alpha beta gamma")
	}
	if got.Result.SegmentCount != 3 {
		t.Errorf("segment count = %d, want 3", got.Result.SegmentCount)
	}
	if _, err := os.Stat(got.Result.LocalPath); err != nil {
		t.Errorf("transcript not saved at %s: %v", got.Result.LocalPath, err)
	}
	if !strings.HasSuffix(got.Result.LocalPath, "_transcription.txt") {
		t.Errorf("transcript path = %s, want _transcription.txt suffix", got.Result.LocalPath)
	}

	final := drainUntilDone(t, updates)
	if final.Message != "completed" || final.Total != 3 {
		t.Errorf("final update = %+v, want completed with total 3", final)
	}
}

func TestProcessJob_SegmentFailureRecordsIndex(t *testing.T) {
	backend := &scriptedBackend{texts: []string{"alpha", "beta", "gamma"}, failAt: 1}
	outputDir := t.TempDir()
	wp := newTestPool(t, backend, outputDir)

	job := NewJob("job-fail", "meeting", "meeting.wav", "", writeWAV(t, t.TempDir(), 300))
	wp.EnqueueJob(job)

	wp.processJob(0, job)

	got := wp.GetJob(job.ID)
	if got.Status != types.StatusFailed {
		t.Fatalf("status = %q, want %q", got.Status, types.StatusFailed)
	}
	if got.FailedSegment != 1 {
		t.Errorf("failed segment = %d, want 1", got.FailedSegment)
	}
	if backend.calls != 2 {
		t.Errorf("backend calls = %d, want 2 (no segments after the failure)", backend.calls)
	}
	if got.Result != nil {
		t.Errorf("result = %+v, want nil for a failed job", got.Result)
	}
	if entries, err := os.ReadDir(outputDir); err != nil || len(entries) != 0 {
		t.Errorf("output dir entries = %v (err %v), want none for a failed job", entries, err)
	}
}

func TestProcessJob_EmptyAudioSkipped(t *testing.T) {
	backend := &scriptedBackend{failAt: -1}
	outputDir := t.TempDir()
	wp := newTestPool(t, backend, outputDir)

	job := NewJob("job-empty", "meeting", "silence.wav", "", writeWAV(t, t.TempDir(), 0))
	wp.EnqueueJob(job)

	updates, cancel := wp.Hub().Subscribe(job.ID)
	defer cancel()

	wp.processJob(0, job)

	got := wp.GetJob(job.ID)
	if got.Status != types.StatusSkipped {
		t.Fatalf("status = %q, want %q (error: %s)", got.Status, types.StatusSkipped, got.Error)
	}
	if backend.calls != 0 {
		t.Errorf("backend calls = %d, want 0 for empty audio", backend.calls)
	}
	if entries, err := os.ReadDir(outputDir); err != nil || len(entries) != 0 {
		t.Errorf("output dir entries = %v (err %v), want none for a skipped job", entries, err)
	}

	final := drainUntilDone(t, updates)
	if final.Message != "skipped" {
		t.Errorf("final update message = %q, want %q", final.Message, "skipped")
	}
}
