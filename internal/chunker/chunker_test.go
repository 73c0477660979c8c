package chunker

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeBackend returns canned text per call and can fail at a chosen segment.
// It decodes every chunk it receives so tests can check segment boundaries.
type fakeBackend struct {
	texts          []string
	failAt         int // segment index to fail on, -1 for none
	calls          int
	langs          []string
	chunkDurations []int64
}

func (f *fakeBackend) Transcribe(_ context.Context, audioPath string, language string) (string, error) {
	i := f.calls
	f.calls++
	f.langs = append(f.langs, language)

	track, err := LoadTrack(audioPath)
	if err != nil {
		return "", fmt.Errorf("could not decode chunk: %v", err)
	}
	f.chunkDurations = append(f.chunkDurations, track.DurationMS())

	if i == f.failAt {
		return "", errors.New("backend boom")
	}
	if i < len(f.texts) {
		return f.texts[i], nil
	}
	return "", nil
}

// testTrack builds a mono track of the given duration at 1kHz, so one frame
// is exactly one millisecond.
func testTrack(durationMS int64) *Track {
	return &Track{
		data:       make([]int, durationMS),
		sampleRate: 1000,
		numChans:   1,
		bitDepth:   16,
	}
}

func TestSegmentCount(t *testing.T) {
	tests := []struct {
		name       string
		durationMS int64
		chunkMS    int64
		want       int
	}{
		{"zero duration", 0, 600000, 0},
		{"one ms", 1, 600000, 1},
		{"exact single chunk", 600000, 600000, 1},
		{"one ms over", 600001, 600000, 2},
		{"fifteen minutes", 900000, 600000, 2},
		{"exact two chunks", 1200000, 600000, 2},
		{"tiny chunks", 10, 3, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentCount(tt.durationMS, tt.chunkMS); got != tt.want {
				t.Errorf("SegmentCount(%d, %d) = %d, want %d", tt.durationMS, tt.chunkMS, got, tt.want)
			}
		})
	}
}

func TestTranscribe_JoinsInOrder(t *testing.T) {
	backend := &fakeBackend{texts: []string{"こんにちは", "世界"}, failAt: -1}
	var progress [][2]int

	tr := New(backend, t.TempDir(), Options{
		ChunkLengthMS: 600000,
		Progress: func(completed, total int, _ string) {
			progress = append(progress, [2]int{completed, total})
		},
	})

	got, err := tr.Transcribe(context.Background(), testTrack(900000))
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if got != "こんにちは 世界" {
		t.Errorf("Transcribe() = %q, want %q", got, "こんにちは 世界")
	}
	if backend.calls != 2 {
		t.Errorf("backend called %d times, want 2", backend.calls)
	}

	// Boundaries: [0, 600000) and [600000, 900000)
	wantDurations := []int64{600000, 300000}
	for i, want := range wantDurations {
		if backend.chunkDurations[i] != want {
			t.Errorf("segment %d duration = %dms, want %dms", i, backend.chunkDurations[i], want)
		}
	}

	wantProgress := [][2]int{{1, 2}, {2, 2}}
	if len(progress) != len(wantProgress) {
		t.Fatalf("got %d progress updates, want %d", len(progress), len(wantProgress))
	}
	for i, want := range wantProgress {
		if progress[i] != want {
			t.Errorf("progress[%d] = %v, want %v", i, progress[i], want)
		}
	}
}

func TestTranscribe_EmptyInput(t *testing.T) {
	backend := &fakeBackend{failAt: -1}
	var gotProgress []string

	tr := New(backend, t.TempDir(), Options{
		Progress: func(completed, total int, message string) {
			gotProgress = append(gotProgress, fmt.Sprintf("%d/%d/%s", completed, total, message))
		},
	})

	got, err := tr.Transcribe(context.Background(), testTrack(0))
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if got != "" {
		t.Errorf("Transcribe() = %q, want empty transcript", got)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times, want 0", backend.calls)
	}
	if len(gotProgress) != 1 || gotProgress[0] != "0/0/skipped" {
		t.Errorf("progress = %v, want single 0/0/skipped update", gotProgress)
	}
}

func TestTranscribe_AbortOnSegmentFailure(t *testing.T) {
	backend := &fakeBackend{texts: []string{"one", "two", "three"}, failAt: 1}

	tr := New(backend, t.TempDir(), Options{ChunkLengthMS: 100})

	got, err := tr.Transcribe(context.Background(), testTrack(300))
	if err == nil {
		t.Fatal("Transcribe() succeeded, want segment failure")
	}
	if got != "" {
		t.Errorf("Transcribe() = %q, want no transcript on failure", got)
	}

	var segErr *SegmentError
	if !errors.As(err, &segErr) {
		t.Fatalf("error %v is not a *SegmentError", err)
	}
	if segErr.Index != 1 {
		t.Errorf("failing segment = %d, want 1", segErr.Index)
	}
	// Segment 2 must never be attempted after the abort.
	if backend.calls != 2 {
		t.Errorf("backend called %d times, want 2", backend.calls)
	}
}

func TestTranscribe_KeepPartial(t *testing.T) {
	backend := &fakeBackend{texts: []string{"one", "two", "three"}, failAt: 1}

	tr := New(backend, t.TempDir(), Options{ChunkLengthMS: 100, KeepPartial: true})

	got, err := tr.Transcribe(context.Background(), testTrack(300))
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	// The failed segment contributes an empty slot in the join.
	if got != "one  three" {
		t.Errorf("Transcribe() = %q, want %q", got, "one  three")
	}
	if backend.calls != 3 {
		t.Errorf("backend called %d times, want 3", backend.calls)
	}
}

func TestTranscribe_LanguageHintPassthrough(t *testing.T) {
	backend := &fakeBackend{texts: []string{"text"}, failAt: -1}

	tr := New(backend, t.TempDir(), Options{ChunkLengthMS: 1000, Language: "ja"})

	if _, err := tr.Transcribe(context.Background(), testTrack(500)); err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if len(backend.langs) != 1 || backend.langs[0] != "ja" {
		t.Errorf("backend received languages %v, want [ja]", backend.langs)
	}
}

func TestTranscribe_SinkPanicDoesNotFailRun(t *testing.T) {
	backend := &fakeBackend{texts: []string{"steady"}, failAt: -1}

	tr := New(backend, t.TempDir(), Options{
		ChunkLengthMS: 1000,
		Progress: func(int, int, string) {
			panic("broken sink")
		},
	})

	got, err := tr.Transcribe(context.Background(), testTrack(500))
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if got != "steady" {
		t.Errorf("Transcribe() = %q, want %q", got, "steady")
	}
}

func TestTranscribe_SegmentationIsIdempotent(t *testing.T) {
	track := testTrack(2500)

	var runs [][]int64
	for i := 0; i < 2; i++ {
		backend := &fakeBackend{failAt: -1}
		tr := New(backend, t.TempDir(), Options{ChunkLengthMS: 1000})
		if _, err := tr.Transcribe(context.Background(), track); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		runs = append(runs, backend.chunkDurations)
	}

	if len(runs[0]) != 3 || len(runs[1]) != 3 {
		t.Fatalf("segment counts = %d and %d, want 3", len(runs[0]), len(runs[1]))
	}
	for i := range runs[0] {
		if runs[0][i] != runs[1][i] {
			t.Errorf("segment %d duration differs between runs: %d vs %d", i, runs[0][i], runs[1][i])
		}
	}
	// Final segment is D mod L when that is non-zero.
	if got := runs[0][2]; got != 500 {
		t.Errorf("final segment duration = %dms, want 500ms", got)
	}
}

func TestTranscribe_CancelledContext(t *testing.T) {
	backend := &fakeBackend{texts: []string{"never"}, failAt: -1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(backend, t.TempDir(), Options{ChunkLengthMS: 1000})
	if _, err := tr.Transcribe(ctx, testTrack(500)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Transcribe() error = %v, want context.Canceled", err)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times after cancellation, want 0", backend.calls)
	}
}

func TestDefaultChunkLength(t *testing.T) {
	tr := New(&fakeBackend{failAt: -1}, t.TempDir(), Options{})
	if tr.opts.ChunkLengthMS != 600000 {
		t.Errorf("default chunk length = %d, want 600000", tr.opts.ChunkLengthMS)
	}
}
