package database

import (
	"database/sql"
	"fmt"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/goccy/go-json"
)

const briefColumns = `id, title, target_region, target_audience, campaign_message,
		products, primary_language_id,
		COALESCE(translation_config, '{}') as translation_config,
		COALESCE(reference_image_path, '') as reference_image_path,
		created_at, updated_at`

// BriefRepository handles brief database operations
type BriefRepository struct {
	db    *sql.DB
	langs *LanguageRepository
}

// NewBriefRepository creates a new brief repository
func NewBriefRepository(db *sql.DB) *BriefRepository {
	return &BriefRepository{db: db, langs: NewLanguageRepository(db)}
}

func scanBrief(row rowScanner) (*models.Brief, error) {
	var b models.Brief
	var productsJSON, configJSON string
	err := row.Scan(
		&b.ID, &b.Title, &b.TargetRegion, &b.TargetAudience, &b.CampaignMessage,
		&productsJSON, &b.PrimaryLanguageID, &configJSON, &b.ReferenceImagePath,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumns(productsJSON, &b.Products, configJSON, &b.TranslationConfig); err != nil {
		return nil, fmt.Errorf("brief %d: %w", b.ID, err)
	}
	return &b, nil
}

func decodeJSONColumns(productsJSON string, products *[]models.Product, configJSON string, config *map[string]interface{}) error {
	if productsJSON != "" {
		if err := json.Unmarshal([]byte(productsJSON), products); err != nil {
			return fmt.Errorf("failed to decode products: %w", err)
		}
	}
	if configJSON != "" {
		if err := json.Unmarshal([]byte(configJSON), config); err != nil {
			return fmt.Errorf("failed to decode translation config: %w", err)
		}
	}
	if *config == nil {
		*config = map[string]interface{}{}
	}
	return nil
}

func encodeJSONColumns(products []models.Product, config map[string]interface{}) (string, string, error) {
	if products == nil {
		products = []models.Product{}
	}
	if config == nil {
		config = map[string]interface{}{}
	}
	productsJSON, err := json.Marshal(products)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode products: %w", err)
	}
	configJSON, err := json.Marshal(config)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode translation config: %w", err)
	}
	return string(productsJSON), string(configJSON), nil
}

// loadLanguages fills the primary and supported languages of a brief
func (r *BriefRepository) loadLanguages(b *models.Brief) error {
	primary, err := r.langs.GetByID(b.PrimaryLanguageID)
	if err != nil {
		return err
	}
	b.PrimaryLanguage = primary

	supported, err := r.langs.queryLanguages(`SELECT l.id, l.code, l.name, COALESCE(l.native_name, ''),
		l.direction, l.script, l.is_active, l.created_at, l.updated_at
		FROM languages l
		JOIN brief_languages bl ON bl.language_id = l.id
		WHERE bl.brief_id = ?
		ORDER BY l.name`, b.ID)
	if err != nil {
		return err
	}
	b.SupportedLanguages = supported
	return nil
}

func (r *BriefRepository) queryBriefs(query string, args ...interface{}) ([]models.Brief, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}

	var briefs []models.Brief
	for rows.Next() {
		b, err := scanBrief(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		briefs = append(briefs, *b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range briefs {
		if err := r.loadLanguages(&briefs[i]); err != nil {
			return nil, err
		}
	}
	return briefs, nil
}

// GetAll returns all briefs, newest first
func (r *BriefRepository) GetAll() ([]models.Brief, error) {
	return r.queryBriefs(`SELECT ` + briefColumns + ` FROM briefs ORDER BY created_at DESC, id DESC`)
}

// GetRecent returns the latest limit briefs
func (r *BriefRepository) GetRecent(limit int) ([]models.Brief, error) {
	return r.queryBriefs(`SELECT `+briefColumns+` FROM briefs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// Count returns the number of briefs
func (r *BriefRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM briefs`).Scan(&count)
	return count, err
}

// GetByID returns a brief with its languages loaded
func (r *BriefRepository) GetByID(id int) (*models.Brief, error) {
	b, err := scanBrief(r.db.QueryRow(`SELECT `+briefColumns+` FROM briefs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadLanguages(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Create inserts a brief together with its supported languages
func (r *BriefRepository) Create(brief *models.Brief) error {
	productsJSON, configJSON, err := encodeJSONColumns(brief.Products, brief.TranslationConfig)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO briefs (title, target_region, target_audience, campaign_message,
		products, primary_language_id, translation_config, reference_image_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))`,
		brief.Title, brief.TargetRegion, brief.TargetAudience, brief.CampaignMessage,
		productsJSON, brief.PrimaryLanguageID, configJSON, brief.ReferenceImagePath,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for _, lang := range brief.SupportedLanguages {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO brief_languages (brief_id, language_id) VALUES (?, ?)`, id, lang.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	brief.ID = int(id)
	return r.loadLanguages(brief)
}

// SetReferenceImage stores the media-relative path of the normalized reference image
func (r *BriefRepository) SetReferenceImage(id int, path string) error {
	_, err := r.db.Exec(`UPDATE briefs SET reference_image_path = NULLIF(?, ''), updated_at = CURRENT_TIMESTAMP WHERE id = ?`, path, id)
	return err
}

// SetSupportedLanguages replaces the additional languages of a brief
func (r *BriefRepository) SetSupportedLanguages(id int, langs []models.Language) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM brief_languages WHERE brief_id = ?`, id); err != nil {
		return err
	}
	for _, lang := range langs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO brief_languages (brief_id, language_id) VALUES (?, ?)`, id, lang.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes a brief; runs and assets cascade
func (r *BriefRepository) Delete(id int) error {
	_, err := r.db.Exec("DELETE FROM briefs WHERE id = ?", id)
	return err
}
