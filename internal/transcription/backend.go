package transcription

import "context"

// Backend converts one audio file to text. Implementations must return an
// error on failure rather than silently returning wrong text. The language
// hint is an opaque locale code ("ja", "en-US", ...) or empty for
// auto-detection; backends decide what to do with it.
type Backend interface {
	// Transcribe processes the audio file at audioPath and returns the
	// recognized text.
	Transcribe(ctx context.Context, audioPath string, language string) (string, error)

	// Name returns the backend name for logging and metadata.
	Name() string
}

// ChunkLimiter is implemented by backends that reject audio longer than a
// fixed duration per request.
type ChunkLimiter interface {
	// MaxChunkLengthMS returns the longest segment the backend accepts,
	// in milliseconds.
	MaxChunkLengthMS() int64
}

// EffectiveChunkLength clamps the configured chunk length to the backend's
// per-request limit. Backends without a limit get the configured value
// unchanged; a non-positive configured value falls back to the limit.
func EffectiveChunkLength(b Backend, configured int64) int64 {
	limiter, ok := b.(ChunkLimiter)
	if !ok {
		return configured
	}
	max := limiter.MaxChunkLengthMS()
	if max <= 0 {
		return configured
	}
	if configured <= 0 || configured > max {
		return max
	}
	return configured
}
