package services

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

// ProgressUpdate represents a progress update event
type ProgressUpdate struct {
	RunID        int       `json:"run_id"`
	BriefID      int       `json:"brief_id"`
	Status       string    `json:"status"`
	CurrentStep  string    `json:"current_step"`
	Progress     int       `json:"progress"`
	Message      string    `json:"message"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ProgressBroadcaster manages SSE connections for live progress updates
type ProgressBroadcaster struct {
	clients map[chan ProgressUpdate]bool
	mutex   sync.RWMutex
}

// NewProgressBroadcaster creates a new progress broadcaster
func NewProgressBroadcaster() *ProgressBroadcaster {
	return &ProgressBroadcaster{
		clients: make(map[chan ProgressUpdate]bool),
	}
}

// Subscribe adds a new client to receive progress updates
func (pb *ProgressBroadcaster) Subscribe() chan ProgressUpdate {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	client := make(chan ProgressUpdate, 10)
	pb.clients[client] = true
	log.Debug().Int("clients", len(pb.clients)).Msg("Client subscribed to progress updates")
	return client
}

// Unsubscribe removes a client from receiving updates
func (pb *ProgressBroadcaster) Unsubscribe(client chan ProgressUpdate) {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	if _, ok := pb.clients[client]; ok {
		delete(pb.clients, client)
		close(client)
		log.Debug().Int("clients", len(pb.clients)).Msg("Client unsubscribed from progress updates")
	}
}

// Broadcast sends a progress update to all connected clients. Clients with
// a full buffer miss the update.
func (pb *ProgressBroadcaster) Broadcast(update ProgressUpdate) {
	pb.mutex.RLock()
	defer pb.mutex.RUnlock()

	update.Timestamp = time.Now()

	for client := range pb.clients {
		select {
		case client <- update:
		default:
			log.Warn().Int("run_id", update.RunID).Msg("Client buffer full, skipping update")
		}
	}

	log.Debug().
		Int("run_id", update.RunID).
		Str("step", update.CurrentStep).
		Int("progress", update.Progress).
		Msg("Progress update broadcast")
}

// BroadcastRun converts a run to a progress update and broadcasts it
func (pb *ProgressBroadcaster) BroadcastRun(run *models.GenerationRun, step string, progress int, message string) {
	pb.Broadcast(ProgressUpdate{
		RunID:        run.ID,
		BriefID:      run.BriefID,
		Status:       run.Status,
		CurrentStep:  step,
		Progress:     progress,
		Message:      message,
		ErrorMessage: run.ErrorMessage,
	})
}

// ClientCount returns the number of connected clients
func (pb *ProgressBroadcaster) ClientCount() int {
	pb.mutex.RLock()
	defer pb.mutex.RUnlock()
	return len(pb.clients)
}

// FormatSSE formats a progress update as Server-Sent Event
func FormatSSE(update ProgressUpdate) string {
	data, err := json.Marshal(update)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling SSE data")
		return ""
	}
	return "data: " + string(data) + "\n\n"
}
