package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/services"
)

// KeepaliveInterval is how often an idle stream gets a comment line
var KeepaliveInterval = 30 * time.Second

// ProgressHandler handles progress streaming
type ProgressHandler struct {
	broadcaster *services.ProgressBroadcaster
	runs        *database.RunRepository
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(broadcaster *services.ProgressBroadcaster, runs *database.RunRepository) *ProgressHandler {
	return &ProgressHandler{
		broadcaster: broadcaster,
		runs:        runs,
	}
}

// StreamProgress streams every progress update via Server-Sent Events
func (h *ProgressHandler) StreamProgress(c *gin.Context) {
	h.stream(c, 0, fmt.Sprintf(`{"message":"connected","timestamp":%q}`, time.Now().Format(time.RFC3339)))
}

// StreamRunProgress streams the updates of a single run
func (h *ProgressHandler) StreamRunProgress(c *gin.Context) {
	runID, err := strconv.Atoi(c.Param("id"))
	if err != nil || runID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	h.stream(c, runID, fmt.Sprintf(`{"message":"connected","run_id":%d,"timestamp":%q}`, runID, time.Now().Format(time.RFC3339)))
}

// stream writes SSE events until the client goes away. A runID of 0
// forwards all updates.
func (h *ProgressHandler) stream(c *gin.Context, runID int, hello string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientChan := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(clientChan)

	clientGone := c.Request.Context().Done()

	c.Writer.WriteHeader(http.StatusOK)
	if _, err := c.Writer.Write([]byte("data: " + hello + "\n\n")); err != nil {
		return
	}
	c.Writer.Flush()

	keepalive := time.NewTicker(KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-clientGone:
			log.Debug().Int("run_id", runID).Msg("Client disconnected from progress stream")
			return
		case update := <-clientChan:
			if runID != 0 && update.RunID != runID {
				continue
			}
			data := services.FormatSSE(update)
			if data == "" {
				continue
			}
			if _, err := c.Writer.Write([]byte(data)); err != nil {
				log.Debug().Err(err).Msg("Error writing SSE data")
				return
			}
			c.Writer.Flush()
		case <-keepalive.C:
			if _, err := c.Writer.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// GetStats returns broadcaster and run statistics
func (h *ProgressHandler) GetStats(c *gin.Context) {
	counts, err := h.runs.CountByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected_clients": h.broadcaster.ClientCount(),
		"runs":              counts,
		"timestamp":         time.Now(),
	})
}
