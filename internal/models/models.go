package models

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AndrewDonelson/campaign-studio/internal/utils"
)

// Language represents a language campaigns can be generated in
type Language struct {
	ID         int       `json:"id" db:"id"`
	Code       string    `json:"code" db:"code"` // ISO 639-1 code, e.g. "en", "ja"
	Name       string    `json:"name" db:"name"` // English name
	NativeName string    `json:"native_name" db:"native_name"`
	Direction  string    `json:"direction" db:"direction"` // ltr, rtl, ttb
	Script     string    `json:"script" db:"script"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

func (l Language) String() string {
	return fmt.Sprintf("%s (%s)", l.Name, l.Code)
}

// DirectionDisplay returns the human readable text direction
func (l Language) DirectionDisplay() string {
	switch l.Direction {
	case DirectionRTL:
		return "Right-to-Left"
	case DirectionTTB:
		return "Top-to-Bottom"
	default:
		return "Left-to-Right"
	}
}

// Product is a single entry of a brief's product list
type Product struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// TypeOrDefault returns the product type, "product" when unset
func (p Product) TypeOrDefault() string {
	if strings.TrimSpace(p.Type) == "" {
		return "product"
	}
	return p.Type
}

// Brief represents a campaign brief
type Brief struct {
	ID                 int                    `json:"id" db:"id"`
	Title              string                 `json:"title" db:"title"`
	TargetRegion       string                 `json:"target_region" db:"target_region"`
	TargetAudience     string                 `json:"target_audience" db:"target_audience"`
	CampaignMessage    string                 `json:"campaign_message" db:"campaign_message"`
	Products           []Product              `json:"products" db:"products"` // JSON
	PrimaryLanguageID  int                    `json:"primary_language_id" db:"primary_language_id"`
	PrimaryLanguage    *Language              `json:"primary_language,omitempty"`
	SupportedLanguages []Language             `json:"supported_languages"`
	TranslationConfig  map[string]interface{} `json:"translation_config" db:"translation_config"` // JSON
	ReferenceImagePath string                 `json:"reference_image_path" db:"reference_image_path"`
	CreatedAt          time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at" db:"updated_at"`
}

// ProductCount returns the number of products in the brief
func (b *Brief) ProductCount() int {
	return len(b.Products)
}

// AllLanguages returns the primary language followed by the supported
// languages, without duplicates
func (b *Brief) AllLanguages() []Language {
	return mergeLanguages(b.PrimaryLanguage, b.SupportedLanguages)
}

// ExpectedAssetCount is products x aspect ratios x languages
func (b *Brief) ExpectedAssetCount() int {
	return b.ProductCount() * len(AspectRatios) * len(b.AllLanguages())
}

// HasReferenceImage reports whether a normalized reference image is attached
func (b *Brief) HasReferenceImage() bool {
	return b.ReferenceImagePath != ""
}

// DemoBrief is a template brief shown on the create form
type DemoBrief struct {
	ID                 int                    `json:"id" db:"id"`
	Title              string                 `json:"title" db:"title"`
	TargetRegion       string                 `json:"target_region" db:"target_region"`
	TargetAudience     string                 `json:"target_audience" db:"target_audience"`
	CampaignMessage    string                 `json:"campaign_message" db:"campaign_message"`
	Products           []Product              `json:"products" db:"products"`
	PrimaryLanguageID  int                    `json:"primary_language_id" db:"primary_language_id"`
	PrimaryLanguage    *Language              `json:"primary_language,omitempty"`
	SupportedLanguages []Language             `json:"supported_languages"`
	TranslationConfig  map[string]interface{} `json:"translation_config" db:"translation_config"`
	Description        string                 `json:"description" db:"description"`
	IsActive           bool                   `json:"is_active" db:"is_active"`
	CreatedAt          time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at" db:"updated_at"`
}

// AllLanguages returns primary + supported languages without duplicates
func (d *DemoBrief) AllLanguages() []Language {
	return mergeLanguages(d.PrimaryLanguage, d.SupportedLanguages)
}

// ToBriefData converts the demo into the payload used to prefill the create form
func (d *DemoBrief) ToBriefData() map[string]interface{} {
	supported := make([]int, 0, len(d.SupportedLanguages))
	for _, lang := range d.SupportedLanguages {
		supported = append(supported, lang.ID)
	}

	translationConfig := d.TranslationConfig
	if translationConfig == nil {
		translationConfig = map[string]interface{}{}
	}

	return map[string]interface{}{
		"title":               d.Title,
		"target_region":       d.TargetRegion,
		"target_audience":     d.TargetAudience,
		"campaign_message":    d.CampaignMessage,
		"products":            d.Products,
		"primary_language":    d.PrimaryLanguageID,
		"supported_languages": supported,
		"translation_config":  translationConfig,
	}
}

func mergeLanguages(primary *Language, supported []Language) []Language {
	seen := make(map[int]bool)
	var langs []Language
	if primary != nil {
		langs = append(langs, *primary)
		seen[primary.ID] = true
	}
	for _, lang := range supported {
		if seen[lang.ID] {
			continue
		}
		seen[lang.ID] = true
		langs = append(langs, lang)
	}
	return langs
}

// GenerationRun tracks one generation pass over a brief
type GenerationRun struct {
	ID                  int        `json:"id" db:"id"`
	BriefID             int        `json:"brief_id" db:"brief_id"`
	RunIndex            int        `json:"run_index" db:"run_index"` // Sequential per brief, starting at 1
	Status              string     `json:"status" db:"status"`
	StartedAt           time.Time  `json:"started_at" db:"started_at"`
	CompletedAt         *time.Time `json:"completed_at" db:"completed_at"`
	Success             bool       `json:"success" db:"success"`
	ErrorMessage        string     `json:"error_message" db:"error_message"`
	AssetsGenerated     int        `json:"assets_generated" db:"assets_generated"`
	TotalGenerationTime float64    `json:"total_generation_time" db:"total_generation_time"`
	EstimatedCostUSD    *float64   `json:"estimated_cost_usd" db:"estimated_cost_usd"`
	IsCurrent           bool       `json:"is_current"`
}

// DurationSeconds returns the wall time of a finished run, 0 while running
func (r *GenerationRun) DurationSeconds() float64 {
	if r.CompletedAt == nil || r.StartedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt).Seconds()
}

func (r *GenerationRun) String() string {
	status := "Failed"
	if r.Success {
		status = "Success"
	}
	return fmt.Sprintf("Run #%d - %s", r.RunIndex, status)
}

// GeneratedAsset is a single rendered campaign image
type GeneratedAsset struct {
	ID                        int       `json:"id" db:"id"`
	BriefID                   int       `json:"brief_id" db:"brief_id"`
	BriefTitle                string    `json:"brief_title,omitempty"`
	RunID                     int       `json:"run_id" db:"run_id"`
	RunIndex                  int       `json:"run_index,omitempty"`
	ProductName               string    `json:"product_name" db:"product_name"`
	AspectRatio               string    `json:"aspect_ratio" db:"aspect_ratio"`
	LanguageID                int       `json:"language_id" db:"language_id"`
	Language                  *Language `json:"language,omitempty"`
	OriginalAssetID           *int      `json:"original_asset_id" db:"original_asset_id"`
	TranslationStatus         string    `json:"translation_status" db:"translation_status"`
	TranslatedCampaignMessage string    `json:"translated_campaign_message" db:"translated_campaign_message"`
	AIPrompt                  string    `json:"ai_prompt" db:"ai_prompt"`
	GenerationTimeSeconds     *float64  `json:"generation_time_seconds" db:"generation_time_seconds"`
	ImageFile                 string    `json:"image_file" db:"image_file"` // Relative to the media root
	OrganizedFilePath         string    `json:"organized_file_path" db:"organized_file_path"`
	IsReferenceImage          bool      `json:"is_reference_image" db:"is_reference_image"`
	ReferenceImageNote        string    `json:"reference_image_note" db:"reference_image_note"`
	CreatedAt                 time.Time `json:"created_at" db:"created_at"`
}

// LanguageCode returns the asset language code, empty if not loaded
func (a *GeneratedAsset) LanguageCode() string {
	if a.Language == nil {
		return ""
	}
	return a.Language.Code
}

// OrganizedFolder is the folder the asset lives in inside exports:
// product-slug/lang/1x1
func (a *GeneratedAsset) OrganizedFolder() string {
	return fmt.Sprintf("%s/%s/%s", utils.ProductSlug(a.ProductName), a.LanguageCode(), utils.RatioDir(a.AspectRatio))
}

// DisplayName is "Product - 1:1 (EN)"
func (a *GeneratedAsset) DisplayName() string {
	return fmt.Sprintf("%s - %s (%s)", a.ProductName, a.AspectRatio, strings.ToUpper(a.LanguageCode()))
}

// FileSizeMB returns the size of the stored image in megabytes, rounded to
// two decimals. Missing files count as 0.
func (a *GeneratedAsset) FileSizeMB(mediaRoot string) float64 {
	if a.ImageFile == "" {
		return 0
	}
	info, err := os.Stat(filepath.Join(mediaRoot, a.ImageFile))
	if err != nil {
		return 0
	}
	return math.Round(float64(info.Size())/(1024*1024)*100) / 100
}

func (a *GeneratedAsset) String() string {
	return fmt.Sprintf("%s - %s (Run #%d)", a.ProductName, a.AspectRatio, a.RunIndex)
}

// AspectRatios in generation order
var AspectRatios = []string{RatioSquare, RatioStory, RatioLandscape}

// AspectRatioLabels maps a ratio to its display label
var AspectRatioLabels = map[string]string{
	RatioSquare:    "Square (1:1)",
	RatioStory:     "Vertical Story (9:16)",
	RatioLandscape: "Horizontal Video (16:9)",
}

// IsValidAspectRatio reports whether ratio is one of the supported aspect ratios
func IsValidAspectRatio(ratio string) bool {
	_, ok := AspectRatioLabels[ratio]
	return ok
}

// Aspect ratios
const (
	RatioSquare    = "1:1"
	RatioStory     = "9:16"
	RatioLandscape = "16:9"
)

// Text directions
const (
	DirectionLTR = "ltr"
	DirectionRTL = "rtl"
	DirectionTTB = "ttb"
)

// Translation status constants
const (
	TranslationOriginal   = "original"
	TranslationTranslated = "translated"
	TranslationFailed     = "failed"
	TranslationPending    = "pending"
)

// Run status constants
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// DefaultLanguageCode is used whenever a language cannot be resolved
const DefaultLanguageCode = "en"
