package transcription

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"
)

// GoogleBackend transcribes audio via the Google Cloud Speech-to-Text API,
// authenticated with a service account JSON credential.
type GoogleBackend struct {
	service         *speech.Service
	defaultLanguage string
}

// NewGoogleBackend creates the cloud backend. The credential file is read
// and validated up front so a bad credential fails at startup, not on the
// first transcription; those failures are reported as *CredentialError.
func NewGoogleBackend(ctx context.Context, credentialsFile, defaultLanguage string) (*GoogleBackend, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, &CredentialError{Path: credentialsFile, Err: fmt.Errorf("unable to read credentials file: %w", err)}
	}

	config, err := google.JWTConfigFromJSON(b, speech.CloudPlatformScope)
	if err != nil {
		return nil, &CredentialError{Path: credentialsFile, Err: fmt.Errorf("unable to parse credentials: %w", err)}
	}
	if config.Email == "" {
		return nil, &CredentialError{Path: credentialsFile, Err: fmt.Errorf("credential has no client_email")}
	}

	srv, err := speech.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, &CredentialError{Path: credentialsFile, Err: fmt.Errorf("unable to create Speech service: %w", err)}
	}

	if defaultLanguage == "" {
		defaultLanguage = "en-US"
	}

	return &GoogleBackend{
		service:         srv,
		defaultLanguage: defaultLanguage,
	}, nil
}

// Sync Recognize rejects audio longer than roughly one minute. 55s leaves
// headroom for container overhead and rounding in the duration estimate.
const googleMaxChunkMS = 55 * 1000

// Name returns the backend name.
func (gb *GoogleBackend) Name() string {
	return "google-speech"
}

// MaxChunkLengthMS returns the longest segment sync Recognize accepts.
func (gb *GoogleBackend) MaxChunkLengthMS() int64 {
	return googleMaxChunkMS
}

// Transcribe sends one normalized WAV file to the Speech-to-Text API.
// Callers keep segments under MaxChunkLengthMS; longer chunks get the
// API's own error back, which aborts the run like any backend failure.
func (gb *GoogleBackend) Transcribe(ctx context.Context, audioPath string, language string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to read segment audio: %w", err)
	}

	if language == "" {
		language = gb.defaultLanguage
	}

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			// Encoding and sample rate come from the WAV header; the
			// normalization step guarantees 16kHz mono LINEAR16.
			LanguageCode: language,
			Model:        "latest_long",
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(data),
		},
	}

	resp, err := gb.service.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("speech recognize failed: %w", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, strings.TrimSpace(result.Alternatives[0].Transcript))
		}
	}

	return strings.TrimSpace(strings.Join(parts, " ")), nil
}
