package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

// GalleryHandler lists generated assets grouped by language
type GalleryHandler struct {
	briefs *database.BriefRepository
	assets *database.AssetRepository
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(db *sql.DB) *GalleryHandler {
	return &GalleryHandler{
		briefs: database.NewBriefRepository(db),
		assets: database.NewAssetRepository(db),
	}
}

// LanguageGroup is one language section of the gallery
type LanguageGroup struct {
	LangName           string             `json:"lang_name"`
	LangCode           string             `json:"lang_code"`
	LangNative         string             `json:"lang_native"`
	LangDirectionBadge string             `json:"lang_direction_badge"`
	ShowDirectionBadge bool               `json:"show_direction_badge"`
	ShowNativeName     bool               `json:"show_native_name"`
	Count              int                `json:"count"`
	Assets             []GalleryAssetView `json:"assets"`
	LangRTL            bool               `json:"lang_rtl"`
	LangTTB            bool               `json:"lang_ttb"`
	LangLTR            bool               `json:"lang_ltr"`
}

// GetGallery returns assets filtered by aspect_ratio, brief and language,
// grouped by language with English first
func (h *GalleryHandler) GetGallery(c *gin.Context) {
	ratioFilter := c.Query("aspect_ratio")
	briefFilter := c.Query("brief")
	langFilter := c.Query("language")

	filter := database.AssetFilter{AspectRatio: ratioFilter, LanguageCode: langFilter}
	if briefFilter != "" {
		id, err := strconv.Atoi(briefFilter)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid brief filter"})
			return
		}
		filter.BriefID = id
	}

	assets, err := h.assets.ListFiltered(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	byLang := make(map[string][]GalleryAssetView)
	var langs []models.Language
	for i := range assets {
		a := &assets[i]
		if a.Language == nil {
			continue
		}
		code := a.Language.Code
		if _, seen := byLang[code]; !seen {
			langs = append(langs, *a.Language)
		}
		byLang[code] = append(byLang[code], newGalleryAssetView(a))
	}
	langs = orderLanguages(langs)

	groups := make([]LanguageGroup, 0, len(langs))
	langChoices := make([]gin.H, 0, len(langs))
	for _, lang := range langs {
		views := byLang[lang.Code]
		group := LanguageGroup{
			LangName:           lang.Name,
			LangCode:           lang.Code,
			LangNative:         lang.NativeName,
			ShowDirectionBadge: lang.Direction != models.DirectionLTR,
			ShowNativeName:     lang.NativeName != lang.Name,
			Count:              len(views),
			Assets:             views,
			LangRTL:            lang.Direction == models.DirectionRTL,
			LangTTB:            lang.Direction == models.DirectionTTB,
			LangLTR:            lang.Direction == models.DirectionLTR,
		}
		if group.ShowDirectionBadge {
			group.LangDirectionBadge = lang.DirectionDisplay()
		}
		groups = append(groups, group)

		langChoices = append(langChoices, gin.H{
			"code":        lang.Code,
			"name":        lang.Name,
			"is_selected": langFilter == lang.Code,
		})
	}

	allBriefs, err := h.briefs.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	briefChoices := make([]gin.H, 0, len(allBriefs))
	for _, b := range allBriefs {
		briefChoices = append(briefChoices, gin.H{
			"id":          b.ID,
			"title":       b.Title,
			"is_selected": briefFilter == strconv.Itoa(b.ID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"assets_by_language":    groups,
		"aspect_ratios":         aspectRatioChoices(ratioFilter),
		"briefs":                briefChoices,
		"languages":             langChoices,
		"selected_aspect_ratio": ratioFilter,
		"selected_brief":        briefFilter,
		"selected_language":     langFilter,
	})
}
