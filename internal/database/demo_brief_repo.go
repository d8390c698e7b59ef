package database

import (
	"database/sql"
	"fmt"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

const demoBriefColumns = `id, title, target_region, target_audience, campaign_message,
		products, primary_language_id,
		COALESCE(translation_config, '{}') as translation_config,
		COALESCE(description, '') as description, is_active,
		created_at, updated_at`

// DemoBriefRepository handles demo brief templates
type DemoBriefRepository struct {
	db    *sql.DB
	langs *LanguageRepository
}

// NewDemoBriefRepository creates a new demo brief repository
func NewDemoBriefRepository(db *sql.DB) *DemoBriefRepository {
	return &DemoBriefRepository{db: db, langs: NewLanguageRepository(db)}
}

func scanDemoBrief(row rowScanner) (*models.DemoBrief, error) {
	var d models.DemoBrief
	var productsJSON, configJSON string
	err := row.Scan(
		&d.ID, &d.Title, &d.TargetRegion, &d.TargetAudience, &d.CampaignMessage,
		&productsJSON, &d.PrimaryLanguageID, &configJSON, &d.Description, &d.IsActive,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumns(productsJSON, &d.Products, configJSON, &d.TranslationConfig); err != nil {
		return nil, fmt.Errorf("demo brief %d: %w", d.ID, err)
	}
	return &d, nil
}

func (r *DemoBriefRepository) loadLanguages(d *models.DemoBrief) error {
	primary, err := r.langs.GetByID(d.PrimaryLanguageID)
	if err != nil {
		return err
	}
	d.PrimaryLanguage = primary

	supported, err := r.langs.queryLanguages(`SELECT l.id, l.code, l.name, COALESCE(l.native_name, ''),
		l.direction, l.script, l.is_active, l.created_at, l.updated_at
		FROM languages l
		JOIN demo_brief_languages dl ON dl.language_id = l.id
		WHERE dl.demo_brief_id = ?
		ORDER BY l.name`, d.ID)
	if err != nil {
		return err
	}
	d.SupportedLanguages = supported
	return nil
}

// GetActive returns active demo briefs ordered by title
func (r *DemoBriefRepository) GetActive() ([]models.DemoBrief, error) {
	rows, err := r.db.Query(`SELECT ` + demoBriefColumns + ` FROM demo_briefs WHERE is_active = 1 ORDER BY title`)
	if err != nil {
		return nil, err
	}

	var demos []models.DemoBrief
	for rows.Next() {
		d, err := scanDemoBrief(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		demos = append(demos, *d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range demos {
		if err := r.loadLanguages(&demos[i]); err != nil {
			return nil, err
		}
	}
	return demos, nil
}

// GetByID returns a demo brief by ID
func (r *DemoBriefRepository) GetByID(id int) (*models.DemoBrief, error) {
	d, err := scanDemoBrief(r.db.QueryRow(`SELECT `+demoBriefColumns+` FROM demo_briefs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLanguages(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Count returns the number of demo briefs
func (r *DemoBriefRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM demo_briefs`).Scan(&count)
	return count, err
}

// Create inserts a demo brief with its supported languages
func (r *DemoBriefRepository) Create(demo *models.DemoBrief) error {
	productsJSON, configJSON, err := encodeJSONColumns(demo.Products, demo.TranslationConfig)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO demo_briefs (title, target_region, target_audience, campaign_message,
		products, primary_language_id, translation_config, description, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		demo.Title, demo.TargetRegion, demo.TargetAudience, demo.CampaignMessage,
		productsJSON, demo.PrimaryLanguageID, configJSON, demo.Description, demo.IsActive,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for _, lang := range demo.SupportedLanguages {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO demo_brief_languages (demo_brief_id, language_id) VALUES (?, ?)`, id, lang.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	demo.ID = int(id)
	return r.loadLanguages(demo)
}
