package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/AndrewDonelson/campaign-studio/config"
	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/generator"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/internal/services"
)

// MissingAPIKeyMessage is returned when generation needs OpenAI but no key is set
const MissingAPIKeyMessage = "OpenAI API key not configured. Please set OPENAI_API_KEY environment variable."

// GenerateHandler starts generations and exposes their runs
type GenerateHandler struct {
	briefs      *database.BriefRepository
	runs        *database.RunRepository
	generator   *generator.Generator
	broadcaster *services.ProgressBroadcaster
	config      *config.Config
}

// NewGenerateHandler creates a new generate handler
func NewGenerateHandler(db *sql.DB, gen *generator.Generator, broadcaster *services.ProgressBroadcaster, cfg *config.Config) *GenerateHandler {
	return &GenerateHandler{
		briefs:      database.NewBriefRepository(db),
		runs:        database.NewRunRepository(db),
		generator:   gen,
		broadcaster: broadcaster,
		config:      cfg,
	}
}

// Generate creates the assets of a brief. JSON requests wait for the run to
// finish; any other request queues the run for the worker.
func (h *GenerateHandler) Generate(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	brief, ok := loadBrief(c, h.briefs)
	if !ok {
		return
	}
	sync := c.ContentType() == "application/json"

	if !h.config.AIDevMode && !h.config.HasAPIKey() {
		if sync {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": MissingAPIKeyMessage})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": MissingAPIKeyMessage})
		return
	}

	warnings := []string{}
	cost := h.generator.EstimateCost(brief)
	if cost > h.config.CostWarningUSD {
		warnings = append(warnings, fmt.Sprintf("Estimated cost for this generation: $%.2f. Make sure you have sufficient OpenAI credits.", cost))
	}

	if !sync {
		run, err := h.runs.StartNext(brief.ID, models.StatusQueued)
		if errors.Is(err, database.ErrRunActive) {
			runActive(c)
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if h.broadcaster != nil {
			h.broadcaster.BroadcastRun(run, "queued", 0, "Generation queued")
		}
		log.Info().Int("brief_id", brief.ID).Int("run_index", run.RunIndex).Msg("Generation queued")

		c.JSON(http.StatusAccepted, gin.H{
			"message":        "Generation queued",
			"run":            run,
			"estimated_cost": cost,
			"warnings":       warnings,
			"status_url":     statusURL(brief.ID),
		})
		return
	}

	run, assets, err := h.generator.Generate(c.Request.Context(), brief)
	if errors.Is(err, database.ErrRunActive) {
		runActive(c)
		return
	}
	if err != nil {
		resp := gin.H{"success": false, "error": "Generation failed: " + err.Error(), "warnings": warnings}
		if run != nil {
			resp["run_id"] = run.ID
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     fmt.Sprintf("Generated %d assets", len(assets)),
		"asset_count": len(assets),
		"run_id":      run.ID,
		"warnings":    warnings,
	})
}

func runActive(c *gin.Context) {
	c.JSON(http.StatusConflict, gin.H{"success": false, "error": "A generation is already queued or running for this brief"})
}

// GetRuns returns the runs of a brief, newest first
func (h *GenerateHandler) GetRuns(c *gin.Context) {
	brief, ok := loadBrief(c, h.briefs)
	if !ok {
		return
	}

	runs, err := h.runs.ListForBrief(brief.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []models.GenerationRun{}
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns a run by ID
func (h *GenerateHandler) GetRun(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	run, err := h.runs.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}
