package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kato04/Transcription-Summarization-App/internal/types"
)

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
	}
}

// SaveTranscript saves the transcript text and a metadata sidecar to disk.
// Returns the path of the transcript text file.
func (ls *LocalStorage) SaveTranscript(originalFilename string, result *types.TranscriptionResult) (string, error) {
	// Create dated directory structure: outputs/2025/01/23/
	now := time.Now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %v", err)
	}

	// 20250123_143022_meeting_transcription.txt
	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, TranscriptFilename(originalFilename))

	txtPath := filepath.Join(dateDir, baseFilename)
	metaPath := strings.TrimSuffix(txtPath, ".txt") + "_meta.json"

	// Save transcript text
	if err := os.WriteFile(txtPath, []byte(result.Text), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %v", err)
	}

	// Save metadata JSON
	metadata := map[string]interface{}{
		"job_id":            result.JobID,
		"original_filename": originalFilename,
		"duration_ms":       result.DurationMS,
		"segment_count":     result.SegmentCount,
		"word_count":        result.WordCount,
		"backend":           result.Backend,
		"language":          result.Language,
		"created_at":        result.ProcessedAt,
		"local_path":        txtPath,
	}

	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %v", err)
	}

	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %v", err)
	}

	return txtPath, nil
}

// TranscriptFilename returns the download filename for a source audio file:
// the original name with its extension replaced by "_transcription.txt".
func TranscriptFilename(originalFilename string) string {
	stem := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	stem = sanitizeFilename(stem)
	if stem == "" {
		stem = "untitled"
	}
	return stem + "_transcription.txt"
}

// sanitizeFilename removes invalid characters from filename
func sanitizeFilename(name string) string {
	invalid := "/\\:*?\"<>|"
	result := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalid, r) {
			return '_'
		}
		return r
	}, name)
	if len(result) > 100 {
		result = result[:100] // Limit length
	}
	return result
}
