package chunker

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Track is a decoded audio recording. It is built once per upload from the
// normalized WAV file and read-only afterwards; segment extraction slices
// the in-memory PCM data instead of re-running ffmpeg per segment.
type Track struct {
	data       []int // interleaved PCM samples
	sampleRate int
	numChans   int
	bitDepth   int
}

// LoadTrack decodes a WAV file into memory.
func LoadTrack(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("WAV has no valid format header")
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}

	return &Track{
		data:       buf.Data,
		sampleRate: buf.Format.SampleRate,
		numChans:   buf.Format.NumChannels,
		bitDepth:   bitDepth,
	}, nil
}

// DurationMS returns the total duration in whole milliseconds.
func (t *Track) DurationMS() int64 {
	frames := int64(len(t.data) / t.numChans)
	return frames * 1000 / int64(t.sampleRate)
}

// SampleRate returns the sample rate in Hz.
func (t *Track) SampleRate() int { return t.sampleRate }

// Channels returns the channel count.
func (t *Track) Channels() int { return t.numChans }

// Extract writes the audio for [startMS, endMS) to a WAV file at path.
// The end offset is clamped to the track length.
func (t *Track) Extract(startMS, endMS int64, path string) error {
	if startMS < 0 || endMS < startMS {
		return fmt.Errorf("invalid segment range [%d, %d)", startMS, endMS)
	}

	startFrame := startMS * int64(t.sampleRate) / 1000
	endFrame := endMS * int64(t.sampleRate) / 1000
	totalFrames := int64(len(t.data) / t.numChans)
	if endFrame > totalFrames {
		endFrame = totalFrames
	}
	if startFrame > endFrame {
		startFrame = endFrame
	}

	segment := t.data[startFrame*int64(t.numChans) : endFrame*int64(t.numChans)]

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create segment file: %w", err)
	}

	enc := wav.NewEncoder(out, t.sampleRate, t.bitDepth, t.numChans, 1)
	buf := &audio.IntBuffer{
		Data:           segment,
		Format:         &audio.Format{NumChannels: t.numChans, SampleRate: t.sampleRate},
		SourceBitDepth: t.bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		out.Close()
		return fmt.Errorf("failed to write segment WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return fmt.Errorf("failed to finalize segment WAV: %w", err)
	}
	return out.Close()
}
