package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler periodically removes stale files from the temp directory:
// uploads and chunk WAVs left behind by crashed or abandoned jobs.
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, interval, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: interval,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler
func (s *Scheduler) Start() {
	// Run initial cleanup on startup
	s.cleanOldFiles()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanOldFiles()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// cleanOldFiles removes files older than maxAge from the temp directory
func (s *Scheduler) cleanOldFiles() {
	now := time.Now()
	var deletedCount int

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		if now.Sub(info.ModTime()) > s.maxAge {
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete old file %s: %v", path, err)
			} else {
				deletedCount++
			}
		}
		return nil
	})

	if err != nil {
		log.Printf("Error during cleanup: %v", err)
	}
	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d stale temp files deleted", deletedCount)
	}
}

// EnsureTempDirExists creates the temp directory if it doesn't exist
func EnsureTempDirExists(tempDir string) error {
	return os.MkdirAll(tempDir, 0755)
}
