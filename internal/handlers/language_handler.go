package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

// LanguageHandler exposes the language and demo brief catalogues
type LanguageHandler struct {
	languages *database.LanguageRepository
	demos     *database.DemoBriefRepository
}

// NewLanguageHandler creates a new language handler
func NewLanguageHandler(db *sql.DB) *LanguageHandler {
	return &LanguageHandler{
		languages: database.NewLanguageRepository(db),
		demos:     database.NewDemoBriefRepository(db),
	}
}

// GetLanguages returns all languages, or only active ones with ?active=true
func (h *LanguageHandler) GetLanguages(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active"))

	var langs []models.Language
	var err error
	if activeOnly {
		langs, err = h.languages.GetActive()
	} else {
		langs, err = h.languages.GetAll()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if langs == nil {
		langs = []models.Language{}
	}

	c.JSON(http.StatusOK, gin.H{"languages": langs})
}

// GetDemoBriefs returns the active demo briefs
func (h *LanguageHandler) GetDemoBriefs(c *gin.Context) {
	demos, err := h.demos.GetActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if demos == nil {
		demos = []models.DemoBrief{}
	}

	c.JSON(http.StatusOK, gin.H{"demo_briefs": demos})
}

// GetDemoBrief returns one demo brief with the payload that prefills the
// create form
func (h *LanguageHandler) GetDemoBrief(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	demo, err := h.demos.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if demo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Demo brief not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"demo_brief": demo,
		"brief_data": demo.ToBriefData(),
	})
}
