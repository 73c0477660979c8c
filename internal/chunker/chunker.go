// Package chunker splits a long recording into fixed-length segments and
// feeds them, in order, to a transcription backend, joining the per-segment
// text into one transcript.
package chunker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultChunkLengthMS is the nominal segment length: 10 minutes, the same
// cut the original tool used. Longer segments mean fewer backend calls but
// more memory per call and more work lost when a segment fails.
const DefaultChunkLengthMS = 10 * 60 * 1000

// Backend converts one segment audio file to text.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string, language string) (string, error)
}

// ProgressFunc receives a progress update after each segment. Updates are
// observational only: a slow or panicking sink never changes the outcome.
type ProgressFunc func(completed, total int, message string)

// SegmentError reports a backend failure on one specific segment. The run is
// aborted and any text accumulated before the failure is discarded.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("transcription failed on segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Options configures a Transcriber.
type Options struct {
	// ChunkLengthMS is the maximum segment duration in milliseconds.
	// Zero or negative selects DefaultChunkLengthMS.
	ChunkLengthMS int64

	// Language is an optional locale hint passed through to the backend.
	Language string

	// Progress receives an update after each processed segment. May be nil.
	Progress ProgressFunc

	// KeepPartial records an empty result for a failing segment and keeps
	// going instead of aborting the run. Off by default: the default policy
	// is abort and discard everything.
	KeepPartial bool
}

// Transcriber runs the chunked transcription loop. It never creates or
// closes the backend; the host owns that lifetime.
type Transcriber struct {
	backend Backend
	tempDir string
	opts    Options
}

// New creates a Transcriber. tempDir holds per-segment WAV files; each one
// lives only for the duration of its backend call.
func New(backend Backend, tempDir string, opts Options) *Transcriber {
	if opts.ChunkLengthMS <= 0 {
		opts.ChunkLengthMS = DefaultChunkLengthMS
	}
	return &Transcriber{
		backend: backend,
		tempDir: tempDir,
		opts:    opts,
	}
}

// SegmentCount returns ceil(durationMS / chunkLengthMS). Segmentation is a
// pure function of duration and chunk length.
func SegmentCount(durationMS, chunkLengthMS int64) int {
	if durationMS <= 0 || chunkLengthMS <= 0 {
		return 0
	}
	return int((durationMS + chunkLengthMS - 1) / chunkLengthMS)
}

// Transcribe processes the track segment by segment, strictly in order, and
// returns the joined transcript. On a backend failure it returns a
// *SegmentError identifying the failing segment and no transcript.
func (t *Transcriber) Transcribe(ctx context.Context, track *Track) (string, error) {
	durationMS := track.DurationMS()
	chunkLen := t.opts.ChunkLengthMS
	total := SegmentCount(durationMS, chunkLen)

	if total == 0 {
		t.report(0, 0, "skipped")
		return "", nil
	}

	texts := make([]string, 0, total)
	for i := 0; i < total; i++ {
		// Cancellation stops before the next segment starts; it never
		// corrupts already-joined text.
		if err := ctx.Err(); err != nil {
			return "", err
		}

		startMS := int64(i) * chunkLen
		endMS := min((int64(i)+1)*chunkLen, durationMS)

		chunkPath := filepath.Join(t.tempDir, fmt.Sprintf("chunk_%03d.wav", i))
		if err := track.Extract(startMS, endMS, chunkPath); err != nil {
			return "", &SegmentError{Index: i, Err: err}
		}

		text, err := t.backend.Transcribe(ctx, chunkPath, t.opts.Language)
		os.Remove(chunkPath)
		if err != nil {
			if !t.opts.KeepPartial {
				return "", &SegmentError{Index: i, Err: err}
			}
			text = ""
		}

		texts = append(texts, text)
		t.report(i+1, total, fmt.Sprintf("processed segment %d/%d", i+1, total))
	}

	return strings.TrimSpace(strings.Join(texts, " ")), nil
}

// report delivers a progress update, shielding the run from sink panics.
func (t *Transcriber) report(completed, total int, message string) {
	if t.opts.Progress == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	t.opts.Progress(completed, total, message)
}
