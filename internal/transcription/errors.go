package transcription

import "fmt"

// ConversionError means the uploaded container could not be decoded or
// normalized. It aborts a job before any segmenting happens.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("audio conversion failed for %s: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// CredentialError means the cloud backend credential is missing, malformed
// or unusable. It is surfaced at startup, before any audio processing.
type CredentialError struct {
	Path string
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("invalid credentials %s: %v", e.Path, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }
