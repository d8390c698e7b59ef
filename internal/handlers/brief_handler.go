package handlers

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/AndrewDonelson/campaign-studio/internal/briefs"
	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/pkg/archive"
)

// BriefHandler handles brief requests
type BriefHandler struct {
	store     *briefs.Store
	briefs    *database.BriefRepository
	assets    *database.AssetRepository
	runs      *database.RunRepository
	languages *database.LanguageRepository
	demos     *database.DemoBriefRepository
	mediaRoot string
}

// NewBriefHandler creates a new brief handler
func NewBriefHandler(db *sql.DB, store *briefs.Store, mediaRoot string) *BriefHandler {
	registerTagNames()
	return &BriefHandler{
		store:     store,
		briefs:    database.NewBriefRepository(db),
		assets:    database.NewAssetRepository(db),
		runs:      database.NewRunRepository(db),
		languages: database.NewLanguageRepository(db),
		demos:     database.NewDemoBriefRepository(db),
		mediaRoot: mediaRoot,
	}
}

type createBriefRequest struct {
	Title               string `form:"title" json:"title" binding:"required,max=200"`
	TargetRegion        string `form:"target_region" json:"target_region" binding:"required,max=200"`
	TargetAudience      string `form:"target_audience" json:"target_audience" binding:"required"`
	CampaignMessage     string `form:"campaign_message" json:"campaign_message" binding:"required"`
	PrimaryLanguage     int    `form:"primary_language" json:"primary_language" binding:"omitempty,gte=1"`
	ProductsJSON        string `form:"products_json" json:"products_json" binding:"required"`
	AdditionalLanguages []int  `form:"additional_languages" json:"additional_languages"`
}

func invalidBrief(c *gin.Context, messages ...string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid brief", "messages": messages})
}

// New returns everything the create form needs
func (h *BriefHandler) New(c *gin.Context) {
	exampleLangs, err := h.languages.GetByCodes(briefs.ExampleLanguageCodes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	demos, err := h.demos.GetActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	demoViews := make([]gin.H, 0, len(demos))
	for i := range demos {
		demoViews = append(demoViews, gin.H{
			"id":          demos[i].ID,
			"title":       demos[i].Title,
			"description": demos[i].Description,
			"brief_data":  demos[i].ToBriefData(),
		})
	}

	active, err := h.languages.GetActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	additional := make([]models.Language, 0, len(active))
	for _, lang := range active {
		if lang.Code != models.DefaultLanguageCode {
			additional = append(additional, lang)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"example_data":  briefs.ExampleData(exampleLangs),
		"demo_briefs":   demoViews,
		"languages":     additional,
		"aspect_ratios": aspectRatioChoices(""),
	})
}

// Create creates a brief from a JSON body or a multipart form. A multipart
// form may carry a reference_image file.
func (h *BriefHandler) Create(c *gin.Context) {
	var req createBriefRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidBrief(c, validationMessages(err)...)
		return
	}

	products, err := briefs.ParseProducts(req.ProductsJSON)
	if err != nil {
		invalidBrief(c, "products_json: "+err.Error())
		return
	}

	primaryLang, additional, err := briefs.ResolveFormLanguages(h.store.Languages(), req.PrimaryLanguage, req.AdditionalLanguages)
	if err != nil {
		h.createError(c, err)
		return
	}

	brief := &models.Brief{
		Title:              req.Title,
		TargetRegion:       req.TargetRegion,
		TargetAudience:     req.TargetAudience,
		CampaignMessage:    req.CampaignMessage,
		Products:           products,
		PrimaryLanguageID:  primaryLang.ID,
		PrimaryLanguage:    primaryLang,
		SupportedLanguages: additional,
	}

	ref, closeRef, err := formReference(c, "reference_image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read reference image: " + err.Error()})
		return
	}
	defer closeRef()

	if err := h.store.Create(brief, ref); err != nil {
		h.createError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    fmt.Sprintf("Campaign brief %q created successfully!", brief.Title),
		"brief":      brief,
		"detail_url": briefURL(brief.ID),
	})
}

func (h *BriefHandler) createError(c *gin.Context, err error) {
	var verr *briefs.ValidationError
	if errors.As(err, &verr) {
		field := verr.Field
		if field == "" {
			field = "brief"
		}
		invalidBrief(c, field+": "+verr.Message)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// formReference opens an optional uploaded image. The returned close func is
// always safe to call.
func formReference(c *gin.Context, field string) (*briefs.Reference, func(), error) {
	noop := func() {}
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		if c.ContentType() != "multipart/form-data" {
			return nil, noop, nil
		}
		return nil, noop, err
	}
	return openReference(header)
}

func openReference(header *multipart.FileHeader) (*briefs.Reference, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &briefs.Reference{Name: header.Filename, Data: f}, func() { f.Close() }, nil
}

// GetAll returns all briefs, newest first
func (h *BriefHandler) GetAll(c *gin.Context) {
	list, err := h.briefs.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []models.Brief{}
	}

	c.JSON(http.StatusOK, gin.H{"briefs": list})
}

// loadBrief resolves the :id parameter, writing the error response itself
func (h *BriefHandler) loadBrief(c *gin.Context) (*models.Brief, bool) {
	return loadBrief(c, h.briefs)
}

func loadBrief(c *gin.Context, repo *database.BriefRepository) (*models.Brief, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return nil, false
	}

	brief, err := repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if brief == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Brief not found"})
		return nil, false
	}
	return brief, true
}

// GetByID returns the brief detail with its assets and runs
func (h *BriefHandler) GetByID(c *gin.Context) {
	brief, ok := h.loadBrief(c)
	if !ok {
		return
	}

	assets, err := h.assets.ListForBrief(brief.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	runs, err := h.runs.ListForBrief(brief.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	assetViews := make([]AssetView, 0, len(assets))
	byProduct := make(map[string]map[string]map[string]AssetView)
	perRun := make(map[int]int)
	for i := range assets {
		view := newAssetView(&assets[i])
		assetViews = append(assetViews, view)
		perRun[assets[i].RunID]++

		langs, ok := byProduct[view.Title]
		if !ok {
			langs = make(map[string]map[string]AssetView)
			byProduct[view.Title] = langs
		}
		code := assets[i].LanguageCode()
		if langs[code] == nil {
			langs[code] = make(map[string]AssetView)
		}
		langs[code][view.AspectRatio] = view
	}

	expected := brief.ExpectedAssetCount()
	runViews := make([]RunView, 0, len(runs))
	for i := range runs {
		runViews = append(runViews, newRunView(&runs[i], perRun[runs[i].ID], expected))
	}

	additional := make([]string, 0, len(brief.SupportedLanguages))
	for _, lang := range brief.SupportedLanguages {
		additional = append(additional, lang.Name)
	}
	var primary string
	if brief.PrimaryLanguage != nil {
		primary = brief.PrimaryLanguage.Name
	}

	c.JSON(http.StatusOK, gin.H{
		"brief_id":             strconv.Itoa(brief.ID),
		"brief_title":          brief.Title,
		"brief_message":        brief.CampaignMessage,
		"target_region":        brief.TargetRegion,
		"target_audience":      brief.TargetAudience,
		"primary_language":     primary,
		"additional_languages": additional,
		"products":             brief.Products,
		"expected_asset_count": expected,
		"actual_asset_count":   len(assets),
		"created_date":         brief.CreatedAt.Format(dateFormat),
		"generate_url":         generateURL(brief.ID),
		"download_url":         downloadURL(brief.ID),
		"status_url":           statusURL(brief.ID),
		"can_generate":         true,
		"can_download":         len(assets) > 0,
		"has_reference_image":  brief.HasReferenceImage(),
		"assets":               assetViews,
		"assets_by_product":    byProduct,
		"runs":                 runViews,
	})
}

// Status reports the generation state of a brief for polling clients
func (h *BriefHandler) Status(c *gin.Context) {
	brief, ok := h.loadBrief(c)
	if !ok {
		return
	}

	count, err := h.assets.CountForBrief(brief.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	latest, err := h.runs.GetLatestForBrief(brief.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := gin.H{
		"brief_id":         brief.ID,
		"title":            brief.Title,
		"expected_assets":  brief.ExpectedAssetCount(),
		"generated_assets": count,
		"is_generating":    latest != nil && latest.CompletedAt == nil,
		"last_generation":  nil,
	}
	if latest != nil {
		var completedAt *string
		if latest.CompletedAt != nil {
			s := latest.CompletedAt.Format(time.RFC3339)
			completedAt = &s
		}
		result["last_generation"] = gin.H{
			"run_index":        latest.RunIndex,
			"status":           latest.Status,
			"success":          latest.Success,
			"started_at":       latest.StartedAt.Format(time.RFC3339),
			"completed_at":     completedAt,
			"assets_generated": latest.AssetsGenerated,
			"total_time":       latest.TotalGenerationTime,
			"estimated_cost":   latest.EstimatedCostUSD,
		}
	}

	c.JSON(http.StatusOK, result)
}

// Download sends every asset of a brief as a ZIP in the organized layout
func (h *BriefHandler) Download(c *gin.Context) {
	brief, ok := h.loadBrief(c)
	if !ok {
		return
	}

	assets, err := h.assets.ListForBrief(brief.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(assets) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No assets found for this brief."})
		return
	}

	var buf bytes.Buffer
	if err := archive.BuildBriefArchive(&buf, brief, assets, h.mediaRoot); err != nil {
		log.Error().Err(err).Int("brief_id", brief.ID).Msg("Error building asset archive")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to build archive: %v", err)})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_assets.zip"`, brief.Title))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
