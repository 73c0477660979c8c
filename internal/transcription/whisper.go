package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Whisper model tiers, smallest to largest. Larger tiers are more accurate
// but slower and hungrier for memory.
var whisperModels = []string{"tiny", "base", "small", "medium", "large"}

// WhisperBackend wraps Python's OpenAI Whisper CLI for local transcription.
// The model is loaded by the whisper process per call; one process runs at a
// time because the models are memory-heavy.
type WhisperBackend struct {
	modelName string
	tempDir   string
	mu        sync.Mutex
}

// NewWhisperBackend creates a local Whisper backend for the given model tier.
// An empty or unknown tier falls back to "base".
func NewWhisperBackend(model, tempDir string) (*WhisperBackend, error) {
	modelName := resolveWhisperModel(model)

	log.Printf("Initializing Python Whisper with model: %s", modelName)
	log.Printf("Note: Whisper availability will be verified on first transcription")

	return &WhisperBackend{
		modelName: modelName,
		tempDir:   tempDir,
	}, nil
}

// resolveWhisperModel maps a configured model name to a known tier.
func resolveWhisperModel(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	for _, m := range whisperModels {
		if strings.Contains(model, m) {
			return m
		}
	}
	return "base"
}

// Name returns the backend name.
func (wb *WhisperBackend) Name() string {
	return "whisper-" + wb.modelName
}

// Transcribe processes one audio file and returns the recognized text.
func (wb *WhisperBackend) Transcribe(ctx context.Context, audioPath string, language string) (string, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	// Create temp directory for Whisper output
	outDir, err := os.MkdirTemp(wb.tempDir, "whisper_output_")
	if err != nil {
		return "", fmt.Errorf("failed to create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	args := []string{
		"-m", "whisper",
		absAudioPath,
		"--model", wb.modelName,
		"--output_dir", outDir,
		"--output_format", "json",
		"--fp16", "False", // CPU compatibility
	}
	if language != "" {
		args = append(args, "--language", language)
	}

	cmd := exec.CommandContext(ctx, "python", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w\nOutput: %s", err, string(output))
	}

	// Read the JSON output file
	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outDir, baseName+".json")

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", fmt.Errorf("failed to read whisper output: %w", err)
	}

	var whisperOutput whisperResult
	if err := json.Unmarshal(jsonData, &whisperOutput); err != nil {
		return "", fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	return strings.TrimSpace(whisperOutput.Text), nil
}

// whisperResult matches Python Whisper's JSON output format
type whisperResult struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}
