package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/internal/services"
)

// Executor runs a queued generation
type Executor interface {
	Execute(ctx context.Context, brief *models.Brief, run *models.GenerationRun) ([]models.GeneratedAsset, error)
}

// Worker executes generation runs queued by asynchronous generate requests
type Worker struct {
	runRepo      *database.RunRepository
	briefRepo    *database.BriefRepository
	broadcaster  *services.ProgressBroadcaster
	executor     Executor
	pollInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new run worker
func NewWorker(
	runRepo *database.RunRepository,
	briefRepo *database.BriefRepository,
	broadcaster *services.ProgressBroadcaster,
	executor Executor,
	pollInterval time.Duration,
) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		runRepo:      runRepo,
		briefRepo:    briefRepo,
		broadcaster:  broadcaster,
		executor:     executor,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Start polls for queued runs until Stop is called
func (w *Worker) Start() {
	defer close(w.done)
	log.Info().Dur("poll_interval", w.pollInterval).Msg("Generation worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Process immediately on start
	w.drain()

	for {
		select {
		case <-w.ctx.Done():
			log.Info().Msg("Generation worker stopped")
			return
		case <-ticker.C:
			w.drain()
		}
	}
}

// Stop cancels the running generation and waits for Start to return
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		log.Info().Msg("Stopping generation worker...")
		w.cancel()
	})
	<-w.done
}

// drain processes queued runs until none is left
func (w *Worker) drain() {
	for w.ctx.Err() == nil && w.processNext() {
	}
}

// processNext executes the oldest queued run and reports whether one was found
func (w *Worker) processNext() bool {
	run, err := w.runRepo.NextQueued()
	if err != nil {
		log.Error().Err(err).Msg("Error getting next queued run")
		return false
	}
	if run == nil {
		return false
	}

	log.Info().Int("run_id", run.ID).Int("brief_id", run.BriefID).Msg("Processing generation run")

	brief, err := w.briefRepo.GetByID(run.BriefID)
	if err != nil {
		log.Error().Err(err).Int("brief_id", run.BriefID).Msg("Error getting brief")
		return w.failRun(run, "Failed to load brief data")
	}
	if brief == nil {
		return w.failRun(run, "Brief not found")
	}

	// Mark as processing
	run.Status = models.StatusProcessing
	run.StartedAt = time.Now()
	if err := w.runRepo.Update(run); err != nil {
		log.Error().Err(err).Int("run_id", run.ID).Msg("Error updating run")
		return false
	}
	w.broadcaster.BroadcastRun(run, "starting", 0, "Processing started")

	// Execute records failures on the run itself
	assets, err := w.executor.Execute(w.ctx, brief, run)
	if err != nil {
		log.Error().Err(err).Int("run_id", run.ID).Msg("Generation run failed")
		w.broadcaster.BroadcastRun(run, "failed", 100, "Processing failed")
		return true
	}

	w.broadcaster.BroadcastRun(run, "completed", 100, "Processing completed successfully")
	log.Info().Int("run_id", run.ID).Int("assets", len(assets)).Msg("Generation run completed")
	return true
}

// failRun marks a run as failed before it could execute. It returns false
// when the run could not be updated and is still queued.
func (w *Worker) failRun(run *models.GenerationRun, errorMsg string) bool {
	completed := time.Now()
	run.Status = models.StatusFailed
	run.Success = false
	run.ErrorMessage = errorMsg
	run.CompletedAt = &completed

	if err := w.runRepo.Update(run); err != nil {
		log.Error().Err(err).Int("run_id", run.ID).Msg("Error updating failed run")
		return false
	}

	w.broadcaster.BroadcastRun(run, "failed", 100, "Processing failed")
	log.Warn().Int("run_id", run.ID).Str("error", errorMsg).Msg("Generation run failed")
	return true
}
