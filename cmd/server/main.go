package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gopkg.in/yaml.v3"

	"github.com/kato04/Transcription-Summarization-App/internal/cleanup"
	"github.com/kato04/Transcription-Summarization-App/internal/handlers"
	"github.com/kato04/Transcription-Summarization-App/internal/queue"
	"github.com/kato04/Transcription-Summarization-App/internal/storage"
	"github.com/kato04/Transcription-Summarization-App/internal/transcription"
	"github.com/kato04/Transcription-Summarization-App/internal/types"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Backend struct {
		Kind string `yaml:"kind"` // "whisper" or "google"

		Whisper struct {
			Model string `yaml:"model"` // tiny, base, small, medium
		} `yaml:"whisper"`

		Google struct {
			CredentialsFile string `yaml:"credentials_file"`
		} `yaml:"google"`
	} `yaml:"backend"`

	Transcription struct {
		ChunkLengthMS int64  `yaml:"chunk_length_ms"`
		Language      string `yaml:"language"`
	} `yaml:"transcription"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

func main() {
	// Load configuration
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure directories exist
	if err := cleanup.EnsureTempDirExists(config.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(config.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	// Initialize components
	log.Println("Initializing components...")

	// Transcription backend. The backend lives for the whole process and is
	// only ever injected into the workers; credential problems for the cloud
	// backend abort startup here, before any audio is accepted.
	backend, err := newBackend(config)
	if err != nil {
		log.Fatalf("Failed to initialize transcription backend: %v", err)
	}

	// A backend with a per-request duration limit caps the chunk length.
	chunkLengthMS := transcription.EffectiveChunkLength(backend, config.Transcription.ChunkLengthMS)
	if chunkLengthMS != config.Transcription.ChunkLengthMS {
		log.Printf("Chunk length adjusted from %dms to %dms for backend %s",
			config.Transcription.ChunkLengthMS, chunkLengthMS, backend.Name())
	}

	// Local storage
	localStorage := storage.NewLocalStorage(config.Storage.OutputDir)

	// Database
	db, err := storage.NewMetadataDB(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Worker pool with progress hub
	hub := queue.NewHub()
	workerPool := queue.NewWorkerPool(
		config.Workers.Count,
		backend,
		localStorage,
		db,
		hub,
		config.Storage.TempDir,
		chunkLengthMS,
		config.Transcription.Language,
	)
	workerPool.Start()

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		config.Storage.TempDir,
		time.Duration(config.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(config.Cleanup.MaxAgeHours)*time.Hour,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(workerPool, config.Storage.TempDir, config.Limits.MaxFileSizeMB)
	progressHandler := handlers.NewProgressHandler(workerPool)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"backend": backend.Name(),
		})
	})

	app.Post("/upload", uploadHandler.Handle)

	// WebSocket route for per-job progress
	app.Get("/ws/progress/:id", websocket.New(progressHandler.Handle))

	// Job status, including the failing segment index on failure
	app.Get("/jobs/:id", func(c *fiber.Ctx) error {
		job := workerPool.GetJob(c.Params("id"))
		if job == nil {
			return c.Status(404).JSON(fiber.Map{"error": "Job not found"})
		}
		resp := fiber.Map{
			"job_id":  job.ID,
			"status":  job.Status,
			"name":    job.RequestName,
			"created": job.CreatedAt,
		}
		if job.Status == types.StatusFailed {
			resp["error"] = job.Error
			if job.FailedSegment >= 0 {
				resp["failed_segment"] = job.FailedSegment
			}
		}
		return c.JSON(resp)
	})

	// Get transcript metadata
	app.Get("/transcripts", func(c *fiber.Ctx) error {
		limit := 50 // Default limit
		transcripts, err := db.ListTranscripts(limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(transcripts)
	})

	// Get transcript text
	app.Get("/transcripts/:id/text", func(c *fiber.Ctx) error {
		content, err := readTranscript(db, c.Params("id"))
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendString(string(content))
	})

	// Download transcript as <original-stem>_transcription.txt
	app.Get("/transcripts/:id/download", func(c *fiber.Ctx) error {
		jobID := c.Params("id")
		transcript, err := db.GetTranscript(jobID)
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "Transcript not found"})
		}

		localPath, _ := transcript["local_path"].(string)
		if localPath == "" {
			return c.Status(404).JSON(fiber.Map{"error": "Transcript file path not found"})
		}
		original, _ := transcript["original_filename"].(string)

		return c.Download(localPath, storage.TranscriptFilename(original))
	})

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s (backend: %s)", addr, backend.Name())
	log.Println("Endpoints:")
	log.Println("   POST /upload                    - Upload audio file")
	log.Println("   GET  /ws/progress/:id           - WebSocket progress stream")
	log.Println("   GET  /jobs/:id                  - Job status")
	log.Println("   GET  /transcripts               - List all transcripts")
	log.Println("   GET  /transcripts/:id/text      - Get transcript text")
	log.Println("   GET  /transcripts/:id/download  - Download transcript file")
	log.Println("   GET  /logs                      - View server logs")
	log.Println("   GET  /health                    - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newBackend constructs the configured transcription backend
func newBackend(config *Config) (transcription.Backend, error) {
	switch config.Backend.Kind {
	case "", types.BackendWhisper:
		return transcription.NewWhisperBackend(config.Backend.Whisper.Model, config.Storage.TempDir)
	case types.BackendGoogle:
		return transcription.NewGoogleBackend(
			context.Background(),
			config.Backend.Google.CredentialsFile,
			config.Transcription.Language,
		)
	default:
		return nil, fmt.Errorf("unknown backend kind: %q", config.Backend.Kind)
	}
}

// readTranscript loads the stored transcript text for a job
func readTranscript(db *storage.MetadataDB, jobID string) ([]byte, error) {
	transcript, err := db.GetTranscript(jobID)
	if err != nil {
		return nil, fmt.Errorf("transcript not found")
	}

	localPath, ok := transcript["local_path"].(string)
	if !ok || localPath == "" {
		return nil, fmt.Errorf("transcript file path not found")
	}

	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file")
	}
	return content, nil
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	// Defaults
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Workers.Count <= 0 {
		config.Workers.Count = 1
	}
	if config.Storage.TempDir == "" {
		config.Storage.TempDir = "temp"
	}
	if config.Storage.OutputDir == "" {
		config.Storage.OutputDir = "outputs"
	}
	if config.Storage.Database == "" {
		config.Storage.Database = "transcripts.db"
	}
	if config.Cleanup.IntervalMinutes <= 0 {
		config.Cleanup.IntervalMinutes = 30
	}
	if config.Cleanup.MaxAgeHours <= 0 {
		config.Cleanup.MaxAgeHours = 24
	}
	if config.Limits.MaxFileSizeMB <= 0 {
		config.Limits.MaxFileSizeMB = 500
	}

	return &config, nil
}
