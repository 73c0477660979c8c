package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/websocket/v2"

	"github.com/kato04/Transcription-Summarization-App/internal/queue"
	"github.com/kato04/Transcription-Summarization-App/internal/types"
)

// ProgressHandler streams per-job progress updates over WebSocket
type ProgressHandler struct {
	workerPool *queue.WorkerPool
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(workerPool *queue.WorkerPool) *ProgressHandler {
	return &ProgressHandler{
		workerPool: workerPool,
	}
}

// Handle pushes progress events for one job until the job finishes or the
// client disconnects.
func (h *ProgressHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	if h.workerPool.GetJob(jobID) == nil {
		c.WriteMessage(websocket.TextMessage, []byte(`{"error":"unknown job"}`))
		return
	}

	updates, cancel := h.workerPool.Hub().Subscribe(jobID)
	defer cancel()

	// The status check runs after the subscription exists. A job that
	// finished in between left the subscription closed by the hub, so the
	// terminal summary is delivered here either way.
	if job := h.workerPool.GetJob(jobID); job != nil && isTerminal(job.Status) {
		h.writeUpdate(c, types.ProgressUpdate{
			JobID:   jobID,
			Message: job.Status,
			Done:    true,
		})
		return
	}

	log.Printf("Progress subscriber attached to job %s", jobID)

	for update := range updates {
		if !h.writeUpdate(c, update) {
			return
		}
		if update.Done {
			return
		}
	}
}

func isTerminal(status string) bool {
	switch status {
	case types.StatusCompleted, types.StatusFailed, types.StatusSkipped:
		return true
	}
	return false
}

func (h *ProgressHandler) writeUpdate(c *websocket.Conn, update types.ProgressUpdate) bool {
	payload, err := json.Marshal(update)
	if err != nil {
		return false
	}
	if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("WebSocket write error: %v", err)
		return false
	}
	return true
}
