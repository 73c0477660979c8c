package queue

import (
	"sync"

	"github.com/kato04/Transcription-Summarization-App/internal/types"
)

// Hub fans progress updates out to per-job subscribers. Delivery is
// non-blocking: a subscriber that stops draining its channel loses updates
// instead of stalling the worker.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan types.ProgressUpdate
	done map[string]bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string][]chan types.ProgressUpdate),
		done: make(map[string]bool),
	}
}

// Subscribe registers for updates on a job. The returned cancel function
// removes the subscription and closes the channel. Subscribing to a job
// whose Done update has already been published yields a closed channel, so
// a late subscriber can never block waiting for updates that will not come.
func (h *Hub) Subscribe(jobID string) (<-chan types.ProgressUpdate, func()) {
	ch := make(chan types.ProgressUpdate, 32)

	h.mu.Lock()
	if h.done[jobID] {
		close(ch)
	} else {
		h.subs[jobID] = append(h.subs[jobID], ch)
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		chans := h.subs[jobID]
		for i, c := range chans {
			if c == ch {
				h.subs[jobID] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
		if len(h.subs[jobID]) == 0 {
			delete(h.subs, jobID)
		}
	}
	return ch, cancel
}

// Publish sends an update to all subscribers of the job. When the update is
// marked Done, the job's subscriptions are closed afterwards.
func (h *Hub) Publish(update types.ProgressUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[update.JobID] {
		select {
		case ch <- update:
		default:
			// Subscriber is not keeping up; drop the update.
		}
	}

	if update.Done {
		for _, ch := range h.subs[update.JobID] {
			close(ch)
		}
		delete(h.subs, update.JobID)
		h.done[update.JobID] = true
	}
}
