package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

const runColumns = `id, brief_id, run_index, status, started_at, completed_at,
		success, COALESCE(error_message, '') as error_message,
		COALESCE(assets_generated, 0) as assets_generated,
		COALESCE(total_generation_time, 0) as total_generation_time,
		estimated_cost_usd`

// RunRepository handles generation run database operations
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func scanRun(row rowScanner) (*models.GenerationRun, error) {
	var run models.GenerationRun
	err := row.Scan(
		&run.ID, &run.BriefID, &run.RunIndex, &run.Status, &run.StartedAt, &run.CompletedAt,
		&run.Success, &run.ErrorMessage, &run.AssetsGenerated, &run.TotalGenerationTime,
		&run.EstimatedCostUSD,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func scanOptionalRun(row rowScanner) (*models.GenerationRun, error) {
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ErrRunActive is returned by StartNext when the brief already has a queued
// or processing run
var ErrRunActive = errors.New("a generation is already queued or running for this brief")

// CreateNext creates the next run for a brief. run_index is one more than
// the highest index the brief has seen, starting at 1.
func (r *RunRepository) CreateNext(briefID int, status string) (*models.GenerationRun, error) {
	return r.createNext(briefID, status, false)
}

// StartNext is CreateNext for a brief without a queued or processing run.
// The check and the insert share one write transaction, so concurrent
// callers get exactly one run and ErrRunActive for the rest.
func (r *RunRepository) StartNext(briefID int, status string) (*models.GenerationRun, error) {
	return r.createNext(briefID, status, true)
}

func (r *RunRepository) createNext(briefID int, status string, idleOnly bool) (*models.GenerationRun, error) {
	ctx := context.Background()
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// IMMEDIATE takes the write lock up front so the active-run check
	// cannot go stale before the insert
	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return nil, fmt.Errorf("failed to begin run transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(ctx, `ROLLBACK`)
		}
	}()

	if idleOnly {
		var active int
		err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM generation_runs
			WHERE brief_id = ? AND status IN (?, ?)`,
			briefID, models.StatusQueued, models.StatusProcessing).Scan(&active)
		if err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, ErrRunActive
		}
	}

	var next int
	err = conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(run_index), 0) + 1 FROM generation_runs WHERE brief_id = ?`, briefID).Scan(&next)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := conn.ExecContext(ctx, `INSERT INTO generation_runs (brief_id, run_index, status, started_at)
		VALUES (?, ?, ?, ?)`, briefID, next, status, now)
	if err != nil {
		if idleOnly && isUniqueViolation(err) {
			return nil, ErrRunActive
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	committed = true

	return &models.GenerationRun{
		ID:        int(id),
		BriefID:   briefID,
		RunIndex:  next,
		Status:    status,
		StartedAt: now,
	}, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// GetByID returns a run by ID
func (r *RunRepository) GetByID(id int) (*models.GenerationRun, error) {
	return scanOptionalRun(r.db.QueryRow(`SELECT `+runColumns+` FROM generation_runs WHERE id = ?`, id))
}

// GetLatestForBrief returns the run with the highest index for a brief
func (r *RunRepository) GetLatestForBrief(briefID int) (*models.GenerationRun, error) {
	return scanOptionalRun(r.db.QueryRow(`SELECT `+runColumns+` FROM generation_runs
		WHERE brief_id = ? ORDER BY run_index DESC LIMIT 1`, briefID))
}

// ListForBrief returns the runs of a brief, newest first. The newest run is
// flagged as current.
func (r *RunRepository) ListForBrief(briefID int) ([]models.GenerationRun, error) {
	rows, err := r.db.Query(`SELECT `+runColumns+` FROM generation_runs
		WHERE brief_id = ? ORDER BY run_index DESC`, briefID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.GenerationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		run.IsCurrent = len(runs) == 0
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// NextQueued returns the oldest queued run
func (r *RunRepository) NextQueued() (*models.GenerationRun, error) {
	return scanOptionalRun(r.db.QueryRow(`SELECT `+runColumns+` FROM generation_runs
		WHERE status = ?
		ORDER BY started_at ASC, id ASC
		LIMIT 1`, models.StatusQueued))
}

// Update writes the mutable fields of a run
func (r *RunRepository) Update(run *models.GenerationRun) error {
	_, err := r.db.Exec(`UPDATE generation_runs SET status=?, started_at=?, completed_at=?,
		success=?, error_message=?, assets_generated=?, total_generation_time=?, estimated_cost_usd=?
		WHERE id=?`,
		run.Status, run.StartedAt, run.CompletedAt,
		run.Success, run.ErrorMessage, run.AssetsGenerated, run.TotalGenerationTime, run.EstimatedCostUSD,
		run.ID,
	)
	return err
}

// FailInterrupted marks runs left in processing by a previous process as failed
func (r *RunRepository) FailInterrupted(message string) (int64, error) {
	result, err := r.db.Exec(`UPDATE generation_runs SET status=?, success=0, error_message=?, completed_at=?
		WHERE status = ?`, models.StatusFailed, message, time.Now(), models.StatusProcessing)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountByStatus returns run counts keyed by status
func (r *RunRepository) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM generation_runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{
		models.StatusQueued:     0,
		models.StatusProcessing: 0,
		models.StatusCompleted:  0,
		models.StatusFailed:     0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
