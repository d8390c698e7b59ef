package handlers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/internal/utils"
)

// APIPrefix is where the API routes are mounted
const APIPrefix = "/api/v1"

const (
	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02 15:04"
)

func briefURL(id int) string    { return fmt.Sprintf("%s/briefs/%d", APIPrefix, id) }
func assetURL(id int) string    { return fmt.Sprintf("%s/assets/%d", APIPrefix, id) }
func generateURL(id int) string { return briefURL(id) + "/generate" }
func downloadURL(id int) string { return briefURL(id) + "/download" }
func statusURL(id int) string   { return briefURL(id) + "/status" }

// AssetView is an asset shaped for the brief detail page
type AssetView struct {
	AssetID               string    `json:"asset_id"`
	Title                 string    `json:"title"`
	AspectRatio           string    `json:"aspect_ratio"`
	LanguageName          string    `json:"language_name"`
	LanguageCode          string    `json:"language_code"`
	ThumbnailURL          string    `json:"thumbnail_url"`
	DetailURL             string    `json:"detail_url"`
	DownloadURL           string    `json:"download_url"`
	DownloadFilename      string    `json:"download_filename"`
	CreatedDate           string    `json:"created_date"`
	TimeAgo               time.Time `json:"time_ago"`
	HasImage              bool      `json:"has_image"`
	GenerationTimeSeconds *float64  `json:"generation_time_seconds"`
	IsReferenceImage      bool      `json:"is_reference_image"`
	RunIndex              int       `json:"run_index"`
}

func newAssetView(a *models.GeneratedAsset) AssetView {
	var langName string
	if a.Language != nil {
		langName = a.Language.Name
	}
	return AssetView{
		AssetID:               strconv.Itoa(a.ID),
		Title:                 a.ProductName,
		AspectRatio:           a.AspectRatio,
		LanguageName:          langName,
		LanguageCode:          strings.ToUpper(a.LanguageCode()),
		ThumbnailURL:          utils.MediaURL(a.ImageFile),
		DetailURL:             assetURL(a.ID),
		DownloadURL:           utils.MediaURL(a.ImageFile),
		DownloadFilename:      downloadFilename(a),
		CreatedDate:           a.CreatedAt.Format(dateTimeFormat),
		TimeAgo:               a.CreatedAt,
		HasImage:              a.ImageFile != "",
		GenerationTimeSeconds: a.GenerationTimeSeconds,
		IsReferenceImage:      a.IsReferenceImage,
		RunIndex:              a.RunIndex,
	}
}

// GalleryAssetView is an asset shaped for the gallery
type GalleryAssetView struct {
	AssetID          string    `json:"asset_id"`
	Title            string    `json:"title"`
	ThumbnailURL     string    `json:"thumbnail_url"`
	DetailURL        string    `json:"detail_url"`
	DownloadURL      string    `json:"download_url"`
	DownloadFilename string    `json:"download_filename"`
	AspectRatioBadge string    `json:"aspect_ratio_badge"`
	LangCodeBadge    string    `json:"lang_code_badge"`
	BriefTitle       string    `json:"brief_title"`
	BriefURL         string    `json:"brief_url"`
	CreatedDate      string    `json:"created_date"`
	TimeAgo          time.Time `json:"time_ago"`
	HasImage         bool      `json:"has_image"`
}

func newGalleryAssetView(a *models.GeneratedAsset) GalleryAssetView {
	return GalleryAssetView{
		AssetID:          strconv.Itoa(a.ID),
		Title:            a.ProductName,
		ThumbnailURL:     utils.MediaURL(a.ImageFile),
		DetailURL:        assetURL(a.ID),
		DownloadURL:      utils.MediaURL(a.ImageFile),
		DownloadFilename: downloadFilename(a),
		AspectRatioBadge: a.AspectRatio,
		LangCodeBadge:    strings.ToUpper(a.LanguageCode()),
		BriefTitle:       a.BriefTitle,
		BriefURL:         briefURL(a.BriefID),
		CreatedDate:      a.CreatedAt.Format(dateTimeFormat),
		TimeAgo:          a.CreatedAt,
		HasImage:         a.ImageFile != "",
	}
}

func downloadFilename(a *models.GeneratedAsset) string {
	return fmt.Sprintf("%s_%s.jpg", a.ProductName, a.AspectRatio)
}

// RunView is a generation run shaped for the brief detail page
type RunView struct {
	RunID         string  `json:"run_id"`
	RunIndex      int     `json:"run_index"`
	StartedDate   string  `json:"started_date"`
	CompletedDate *string `json:"completed_date"`
	Status        string  `json:"status"`
	IsCompleted   bool    `json:"is_completed"`
	IsFailed      bool    `json:"is_failed"`
	IsRunning     bool    `json:"is_running"`
	IsQueued      bool    `json:"is_queued"`
	IsCurrent     bool    `json:"is_current"`
	ProgressText  string  `json:"progress_text"`
	Duration      string  `json:"duration"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}

// newRunView builds the view of run. saved is the number of assets already
// stored for it.
func newRunView(run *models.GenerationRun, saved, expected int) RunView {
	v := RunView{
		RunID:        strconv.Itoa(run.ID),
		RunIndex:     run.RunIndex,
		StartedDate:  run.StartedAt.Format(dateTimeFormat),
		Status:       run.Status,
		IsCompleted:  run.Status == models.StatusCompleted,
		IsFailed:     run.Status == models.StatusFailed,
		IsRunning:    run.Status == models.StatusProcessing,
		IsQueued:     run.Status == models.StatusQueued,
		IsCurrent:    run.IsCurrent,
		Duration:     formatDuration(int(run.DurationSeconds())),
		ErrorMessage: run.ErrorMessage,
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.Format(dateTimeFormat)
		v.CompletedDate = &completed
	}

	switch {
	case v.IsQueued:
		v.ProgressText = "Queued"
	case v.IsRunning && saved == 0:
		v.ProgressText = "Starting..."
	default:
		v.ProgressText = fmt.Sprintf("%d/%d", saved, expected)
	}
	return v
}

func formatDuration(seconds int) string {
	if seconds < 0 {
		return "0s"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, secs)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}

// orderLanguages puts English first and sorts the rest by name
func orderLanguages(langs []models.Language) []models.Language {
	ordered := make([]models.Language, len(langs))
	copy(ordered, langs)
	sort.SliceStable(ordered, func(i, j int) bool {
		iEn := ordered[i].Code == models.DefaultLanguageCode
		jEn := ordered[j].Code == models.DefaultLanguageCode
		if iEn != jEn {
			return iEn
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}

// aspectRatioChoices lists the ratios with their labels, in generation order
func aspectRatioChoices(selected string) []map[string]interface{} {
	choices := make([]map[string]interface{}, 0, len(models.AspectRatios))
	for _, ratio := range models.AspectRatios {
		choices = append(choices, map[string]interface{}{
			"value":       ratio,
			"label":       models.AspectRatioLabels[ratio],
			"is_selected": selected == ratio,
		})
	}
	return choices
}
