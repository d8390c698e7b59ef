package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

func TestBroadcasterFanOut(t *testing.T) {
	pb := NewProgressBroadcaster()
	a := pb.Subscribe()
	b := pb.Subscribe()
	assert.Equal(t, 2, pb.ClientCount())

	run := &models.GenerationRun{ID: 7, BriefID: 3, Status: models.StatusProcessing}
	pb.BroadcastRun(run, "generating", 50, "Generated 3 of 6 assets")

	for _, ch := range []chan ProgressUpdate{a, b} {
		update := <-ch
		assert.Equal(t, 7, update.RunID)
		assert.Equal(t, 3, update.BriefID)
		assert.Equal(t, 50, update.Progress)
		assert.False(t, update.Timestamp.IsZero())
	}

	pb.Unsubscribe(a)
	pb.Unsubscribe(a)
	assert.Equal(t, 1, pb.ClientCount())
	_, open := <-a
	assert.False(t, open)
}

func TestBroadcasterDropsWhenFull(t *testing.T) {
	pb := NewProgressBroadcaster()
	ch := pb.Subscribe()

	for i := 0; i < 15; i++ {
		pb.Broadcast(ProgressUpdate{RunID: 1, Progress: i})
	}
	assert.Len(t, ch, 10)
	first := <-ch
	assert.Equal(t, 0, first.Progress)
}

func TestFormatSSE(t *testing.T) {
	out := FormatSSE(ProgressUpdate{RunID: 2, Status: models.StatusCompleted, Progress: 100})
	require.True(t, strings.HasPrefix(out, "data: {"))
	assert.True(t, strings.HasSuffix(out, "}\n\n"))
	assert.Contains(t, out, `"run_id":2`)
	assert.NotContains(t, out, "error_message")
}
