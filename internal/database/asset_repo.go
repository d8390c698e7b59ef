package database

import (
	"database/sql"
	"strings"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

const assetSelect = `SELECT a.id, a.brief_id, b.title, a.run_id, r.run_index,
		a.product_name, a.aspect_ratio, a.language_id, a.original_asset_id,
		COALESCE(a.translation_status, 'original') as translation_status,
		COALESCE(a.translated_campaign_message, '') as translated_campaign_message,
		COALESCE(a.ai_prompt, '') as ai_prompt, a.generation_time_seconds,
		COALESCE(a.image_file, '') as image_file,
		COALESCE(a.organized_file_path, '') as organized_file_path,
		a.is_reference_image, COALESCE(a.reference_image_note, '') as reference_image_note,
		a.created_at,
		l.id, l.code, l.name, COALESCE(l.native_name, ''), l.direction, l.script,
		l.is_active, l.created_at, l.updated_at
		FROM generated_assets a
		JOIN briefs b ON b.id = a.brief_id
		JOIN generation_runs r ON r.id = a.run_id
		JOIN languages l ON l.id = a.language_id`

// AssetFilter narrows ListFiltered; zero values mean no filter
type AssetFilter struct {
	AspectRatio  string
	BriefID      int
	LanguageCode string
}

// AssetRepository handles generated asset database operations
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func scanAsset(row rowScanner) (*models.GeneratedAsset, error) {
	var a models.GeneratedAsset
	var lang models.Language
	err := row.Scan(
		&a.ID, &a.BriefID, &a.BriefTitle, &a.RunID, &a.RunIndex,
		&a.ProductName, &a.AspectRatio, &a.LanguageID, &a.OriginalAssetID,
		&a.TranslationStatus, &a.TranslatedCampaignMessage,
		&a.AIPrompt, &a.GenerationTimeSeconds,
		&a.ImageFile, &a.OrganizedFilePath,
		&a.IsReferenceImage, &a.ReferenceImageNote,
		&a.CreatedAt,
		&lang.ID, &lang.Code, &lang.Name, &lang.NativeName, &lang.Direction, &lang.Script,
		&lang.IsActive, &lang.CreatedAt, &lang.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Language = &lang
	return &a, nil
}

func (r *AssetRepository) queryAssets(query string, args ...interface{}) ([]models.GeneratedAsset, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []models.GeneratedAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}

	return assets, rows.Err()
}

// Upsert inserts an asset or updates the one already stored for the same
// (run, product, ratio, language). An existing translated message is kept.
func (r *AssetRepository) Upsert(asset *models.GeneratedAsset) error {
	if asset.TranslationStatus == "" {
		asset.TranslationStatus = models.TranslationOriginal
	}

	query := `INSERT INTO generated_assets (brief_id, run_id, product_name, aspect_ratio, language_id,
		original_asset_id, translation_status, translated_campaign_message, ai_prompt,
		generation_time_seconds, image_file, organized_file_path, is_reference_image, reference_image_note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, product_name, aspect_ratio, language_id) DO UPDATE SET
			ai_prompt = excluded.ai_prompt,
			generation_time_seconds = excluded.generation_time_seconds,
			image_file = excluded.image_file,
			organized_file_path = excluded.organized_file_path,
			is_reference_image = excluded.is_reference_image,
			reference_image_note = excluded.reference_image_note,
			translation_status = CASE WHEN generated_assets.translated_campaign_message = ''
				THEN excluded.translation_status ELSE generated_assets.translation_status END,
			translated_campaign_message = CASE WHEN generated_assets.translated_campaign_message = ''
				THEN excluded.translated_campaign_message ELSE generated_assets.translated_campaign_message END
		RETURNING id, translation_status, translated_campaign_message`

	return r.db.QueryRow(query,
		asset.BriefID, asset.RunID, asset.ProductName, asset.AspectRatio, asset.LanguageID,
		asset.OriginalAssetID, asset.TranslationStatus, asset.TranslatedCampaignMessage, asset.AIPrompt,
		asset.GenerationTimeSeconds, asset.ImageFile, asset.OrganizedFilePath,
		asset.IsReferenceImage, asset.ReferenceImageNote,
	).Scan(&asset.ID, &asset.TranslationStatus, &asset.TranslatedCampaignMessage)
}

// SetImageFile points an asset at its stored media file
func (r *AssetRepository) SetImageFile(id int, imageFile, organizedPath string) error {
	_, err := r.db.Exec(`UPDATE generated_assets SET image_file = ?, organized_file_path = ? WHERE id = ?`,
		imageFile, organizedPath, id)
	return err
}

// GetByID returns an asset by ID
func (r *AssetRepository) GetByID(id int) (*models.GeneratedAsset, error) {
	a, err := scanAsset(r.db.QueryRow(assetSelect+` WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListForBrief returns every asset of a brief across all runs, ordered by
// product, language name and ratio
func (r *AssetRepository) ListForBrief(briefID int) ([]models.GeneratedAsset, error) {
	return r.queryAssets(assetSelect+` WHERE a.brief_id = ?
		ORDER BY a.product_name, l.name, a.aspect_ratio, a.id`, briefID)
}

// ListForRun returns the assets produced by one run
func (r *AssetRepository) ListForRun(runID int) ([]models.GeneratedAsset, error) {
	return r.queryAssets(assetSelect+` WHERE a.run_id = ? ORDER BY a.id`, runID)
}

// ListRecent returns the latest limit assets
func (r *AssetRepository) ListRecent(limit int) ([]models.GeneratedAsset, error) {
	return r.queryAssets(assetSelect+` ORDER BY a.created_at DESC, a.id DESC LIMIT ?`, limit)
}

// ListFiltered returns assets matching the filter, newest first
func (r *AssetRepository) ListFiltered(filter AssetFilter) ([]models.GeneratedAsset, error) {
	var where []string
	var args []interface{}

	if filter.AspectRatio != "" {
		where = append(where, "a.aspect_ratio = ?")
		args = append(args, filter.AspectRatio)
	}
	if filter.BriefID > 0 {
		where = append(where, "a.brief_id = ?")
		args = append(args, filter.BriefID)
	}
	if filter.LanguageCode != "" {
		where = append(where, "l.code = ?")
		args = append(args, filter.LanguageCode)
	}

	query := assetSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.id DESC"

	return r.queryAssets(query, args...)
}

// ListRelated returns the other assets of the same brief and product
func (r *AssetRepository) ListRelated(asset *models.GeneratedAsset) ([]models.GeneratedAsset, error) {
	return r.queryAssets(assetSelect+` WHERE a.brief_id = ? AND a.product_name = ? AND a.id != ?
		ORDER BY a.created_at DESC, a.id DESC`, asset.BriefID, asset.ProductName, asset.ID)
}

// Count returns the number of assets
func (r *AssetRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM generated_assets`).Scan(&count)
	return count, err
}

// CountForBrief returns the number of assets generated for a brief
func (r *AssetRepository) CountForBrief(briefID int) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM generated_assets WHERE brief_id = ?`, briefID).Scan(&count)
	return count, err
}

// FindTranslatedMessage returns a translation already stored for the brief
// and language, or "" when none exists
func (r *AssetRepository) FindTranslatedMessage(briefID, languageID int) (string, error) {
	var message string
	err := r.db.QueryRow(`SELECT translated_campaign_message FROM generated_assets
		WHERE brief_id = ? AND language_id = ? AND translated_campaign_message != ''
		ORDER BY id DESC LIMIT 1`, briefID, languageID).Scan(&message)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return message, err
}

// LanguagesWithAssets returns the languages that have at least one asset
func (r *AssetRepository) LanguagesWithAssets() ([]models.Language, error) {
	rows, err := r.db.Query(`SELECT ` + languageColumns + ` FROM languages
		WHERE id IN (SELECT DISTINCT language_id FROM generated_assets)
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var langs []models.Language
	for rows.Next() {
		var lang models.Language
		if err := scanLanguage(rows, &lang); err != nil {
			return nil, err
		}
		langs = append(langs, lang)
	}

	return langs, rows.Err()
}
