package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

type DashboardHandler struct {
	db     *sql.DB
	briefs *database.BriefRepository
	assets *database.AssetRepository
	runs   *database.RunRepository
}

func NewDashboardHandler(db *sql.DB) *DashboardHandler {
	return &DashboardHandler{
		db:     db,
		briefs: database.NewBriefRepository(db),
		assets: database.NewAssetRepository(db),
		runs:   database.NewRunRepository(db),
	}
}

type DashboardStats struct {
	TotalBriefs int `json:"total_briefs"`
	TotalAssets int `json:"total_assets"`

	// Runs
	QueuedRuns     int `json:"queued_runs"`
	ProcessingRuns int `json:"processing_runs"`
	CompletedRuns  int `json:"completed_runs"`
	FailedRuns     int `json:"failed_runs"`

	MinRunTime  string  `json:"min_run_time"`
	MaxRunTime  string  `json:"max_run_time"`
	AvgRunTime  string  `json:"avg_run_time"`
	SuccessRate float64 `json:"success_rate"`
	TotalCost   float64 `json:"total_estimated_cost_usd"`

	RecentBriefs         []models.Brief  `json:"recent_briefs"`
	RecentAssets         []AssetView     `json:"recent_assets"`
	RecentErrors         []RecentError   `json:"recent_errors"`
	LanguageDistribution []LanguageStats `json:"language_distribution"`
}

type RecentError struct {
	RunID        int       `json:"run_id"`
	BriefID      int       `json:"brief_id"`
	Title        string    `json:"title"`
	ErrorMessage string    `json:"error_message"`
	FailedAt     time.Time `json:"failed_at"`
}

type LanguageStats struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	stats := DashboardStats{
		RecentBriefs:         []models.Brief{},
		RecentAssets:         []AssetView{},
		RecentErrors:         []RecentError{},
		LanguageDistribution: []LanguageStats{},
	}

	var err error
	if stats.TotalBriefs, err = h.briefs.Count(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if stats.TotalAssets, err = h.assets.Count(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	recentBriefs, err := h.briefs.GetRecent(5)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if recentBriefs != nil {
		stats.RecentBriefs = recentBriefs
	}

	recentAssets, err := h.assets.ListRecent(12)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for i := range recentAssets {
		stats.RecentAssets = append(stats.RecentAssets, newAssetView(&recentAssets[i]))
	}

	counts, err := h.runs.CountByStatus()
	if err == nil {
		stats.QueuedRuns = counts[models.StatusQueued]
		stats.ProcessingRuns = counts[models.StatusProcessing]
		stats.CompletedRuns = counts[models.StatusCompleted]
		stats.FailedRuns = counts[models.StatusFailed]
	}
	if finished := stats.CompletedRuns + stats.FailedRuns; finished > 0 {
		stats.SuccessRate = float64(stats.CompletedRuns) / float64(finished) * 100
	}

	// Wall time of completed runs
	var minSeconds, maxSeconds, avgSeconds sql.NullFloat64
	err = h.db.QueryRow(`
		SELECT
			MIN((julianday(completed_at) - julianday(started_at)) * 86400),
			MAX((julianday(completed_at) - julianday(started_at)) * 86400),
			AVG((julianday(completed_at) - julianday(started_at)) * 86400)
		FROM generation_runs
		WHERE status = 'completed'
		AND completed_at IS NOT NULL
	`).Scan(&minSeconds, &maxSeconds, &avgSeconds)
	if err == nil && minSeconds.Valid {
		stats.MinRunTime = formatDuration(int(minSeconds.Float64))
		stats.MaxRunTime = formatDuration(int(maxSeconds.Float64))
		stats.AvgRunTime = formatDuration(int(avgSeconds.Float64))
	} else {
		stats.MinRunTime = "N/A"
		stats.MaxRunTime = "N/A"
		stats.AvgRunTime = "N/A"
	}

	var totalCost sql.NullFloat64
	if err := h.db.QueryRow(`SELECT SUM(estimated_cost_usd) FROM generation_runs`).Scan(&totalCost); err == nil && totalCost.Valid {
		stats.TotalCost = totalCost.Float64
	}

	rows, err := h.db.Query(`
		SELECT r.id, r.brief_id, b.title, COALESCE(r.error_message, ''), r.completed_at
		FROM generation_runs r
		JOIN briefs b ON r.brief_id = b.id
		WHERE r.status = 'failed'
		ORDER BY r.completed_at DESC
		LIMIT 10
	`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var e RecentError
			var completedAt sql.NullTime
			if err := rows.Scan(&e.RunID, &e.BriefID, &e.Title, &e.ErrorMessage, &completedAt); err == nil && completedAt.Valid {
				e.FailedAt = completedAt.Time
				stats.RecentErrors = append(stats.RecentErrors, e)
			}
		}
	}

	langRows, err := h.db.Query(`
		SELECT l.code, l.name, COUNT(*) as count
		FROM generated_assets a
		JOIN languages l ON a.language_id = l.id
		GROUP BY l.id
		ORDER BY count DESC, l.name
	`)
	if err == nil {
		defer langRows.Close()
		for langRows.Next() {
			var ls LanguageStats
			if err := langRows.Scan(&ls.Code, &ls.Name, &ls.Count); err == nil {
				stats.LanguageDistribution = append(stats.LanguageDistribution, ls)
			}
		}
	}

	c.JSON(http.StatusOK, stats)
}
