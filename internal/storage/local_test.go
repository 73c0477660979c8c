package storage

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kato04/Transcription-Summarization-App/internal/types"
)

func TestTranscriptFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"m4a upload", "meeting.m4a", "meeting_transcription.txt"},
		{"no extension", "meeting", "meeting_transcription.txt"},
		{"nested path stripped", "/tmp/uploads/talk.mp3", "talk_transcription.txt"},
		{"invalid chars replaced", "a:b?c.wav", "a_b_c_transcription.txt"},
		{"empty name", "", "untitled_transcription.txt"},
		{"dot only", ".wav", "untitled_transcription.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TranscriptFilename(tt.filename); got != tt.want {
				t.Errorf("TranscriptFilename(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestLocalStorage_SaveTranscript(t *testing.T) {
	ls := NewLocalStorage(t.TempDir())

	result := &types.TranscriptionResult{
		JobID:        "job-1",
		Text:         "こんにちは 世界",
		Language:     "ja",
		DurationMS:   900000,
		SegmentCount: 2,
		Backend:      "whisper-base",
		WordCount:    2,
		ProcessedAt:  time.Now(),
	}

	path, err := ls.SaveTranscript("greeting.m4a", result)
	if err != nil {
		t.Fatalf("SaveTranscript() failed: %v", err)
	}

	if !strings.HasSuffix(path, "greeting_transcription.txt") {
		t.Errorf("transcript path %q does not end with the expected filename", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("could not read saved transcript: %v", err)
	}
	if string(content) != result.Text {
		t.Errorf("saved text = %q, want %q", string(content), result.Text)
	}

	metaPath := strings.TrimSuffix(path, ".txt") + "_meta.json"
	meta, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("could not read metadata sidecar: %v", err)
	}
	if !strings.Contains(string(meta), `"job_id": "job-1"`) {
		t.Errorf("metadata sidecar missing job id: %s", meta)
	}
}
