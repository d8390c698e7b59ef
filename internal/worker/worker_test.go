package worker

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps a connection opener goroutine per open DB
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

type fakeExecutor struct {
	mu    sync.Mutex
	runs  []int
	err   error
	block chan struct{}
}

func (f *fakeExecutor) Execute(ctx context.Context, brief *models.Brief, run *models.GenerationRun) ([]models.GeneratedAsset, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.runs = append(f.runs, run.ID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []models.GeneratedAsset{{ProductName: brief.Title}}, nil
}

func (f *fakeExecutor) executed() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.runs...)
}

func setup(t *testing.T) (*sql.DB, *models.Brief) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "campaigns.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedLanguages(db))

	en, err := database.NewLanguageRepository(db).GetByCode("en", false)
	require.NoError(t, err)
	brief := &models.Brief{
		Title:             "Launch",
		TargetRegion:      "EU",
		TargetAudience:    "all",
		CampaignMessage:   "Hi",
		Products:          []models.Product{{Name: "Fizz"}},
		PrimaryLanguageID: en.ID,
	}
	require.NoError(t, database.NewBriefRepository(db).Create(brief))
	return db, brief
}

func newWorker(db *sql.DB, exec Executor) *Worker {
	return NewWorker(
		database.NewRunRepository(db),
		database.NewBriefRepository(db),
		services.NewProgressBroadcaster(),
		exec,
		10*time.Millisecond,
	)
}

func TestProcessNextExecutesQueuedRunsInOrder(t *testing.T) {
	db, brief := setup(t)
	runs := database.NewRunRepository(db)

	first, err := runs.CreateNext(brief.ID, models.StatusQueued)
	require.NoError(t, err)
	second, err := runs.CreateNext(brief.ID, models.StatusQueued)
	require.NoError(t, err)

	exec := &fakeExecutor{}
	w := newWorker(db, exec)

	assert.True(t, w.processNext())
	assert.True(t, w.processNext())
	assert.False(t, w.processNext())
	assert.Equal(t, []int{first.ID, second.ID}, exec.executed())

	stored, err := runs.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, stored.Status, "status after execute is owned by the executor")
}

func TestProcessNextFailsRunWithoutBrief(t *testing.T) {
	db, brief := setup(t)
	runs := database.NewRunRepository(db)

	run, err := runs.CreateNext(brief.ID, models.StatusQueued)
	require.NoError(t, err)
	// the pragma is per connection
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`PRAGMA foreign_keys = OFF`)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE generation_runs SET brief_id = 999 WHERE id = ?`, run.ID)
	require.NoError(t, err)

	exec := &fakeExecutor{}
	w := newWorker(db, exec)
	assert.True(t, w.processNext())
	assert.Empty(t, exec.executed())

	stored, err := runs.GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Equal(t, "Brief not found", stored.ErrorMessage)
	assert.NotNil(t, stored.CompletedAt)
}

func TestProcessNextReportsExecutorFailure(t *testing.T) {
	db, brief := setup(t)
	runs := database.NewRunRepository(db)
	_, err := runs.CreateNext(brief.ID, models.StatusQueued)
	require.NoError(t, err)

	w := newWorker(db, &fakeExecutor{err: errors.New("quota")})
	updates := w.broadcaster.Subscribe()

	assert.True(t, w.processNext())
	var last services.ProgressUpdate
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, "failed", last.CurrentStep)
}

func TestStartAndStop(t *testing.T) {
	db, brief := setup(t)
	runs := database.NewRunRepository(db)

	exec := &fakeExecutor{}
	w := newWorker(db, exec)
	go w.Start()

	run, err := runs.CreateNext(brief.ID, models.StatusQueued)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(exec.executed()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int{run.ID}, exec.executed())

	w.Stop()
	w.Stop()
}

func TestStopCancelsRunningExecution(t *testing.T) {
	db, brief := setup(t)
	_, err := database.NewRunRepository(db).CreateNext(brief.ID, models.StatusQueued)
	require.NoError(t, err)

	exec := &fakeExecutor{block: make(chan struct{})}
	w := newWorker(db, exec)
	go w.Start()

	time.Sleep(50 * time.Millisecond)
	w.Stop()
	assert.Empty(t, exec.executed())
}
