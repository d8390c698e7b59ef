package database

import (
	"database/sql"
	"strings"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

const languageColumns = `id, code, name, COALESCE(native_name, '') as native_name,
		direction, script, is_active, created_at, updated_at`

// LanguageRepository handles language database operations
type LanguageRepository struct {
	db *sql.DB
}

// NewLanguageRepository creates a new language repository
func NewLanguageRepository(db *sql.DB) *LanguageRepository {
	return &LanguageRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLanguage(row rowScanner, lang *models.Language) error {
	return row.Scan(
		&lang.ID, &lang.Code, &lang.Name, &lang.NativeName,
		&lang.Direction, &lang.Script, &lang.IsActive, &lang.CreatedAt, &lang.UpdatedAt,
	)
}

func (r *LanguageRepository) queryLanguages(query string, args ...interface{}) ([]models.Language, error) {
	rows, err := r.db.Query(query, args...)
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

// GetAll returns all languages ordered by name
func (r *LanguageRepository) GetAll() ([]models.Language, error) {
	return r.queryLanguages(`SELECT ` + languageColumns + ` FROM languages ORDER BY name`)
}

// GetActive returns active languages ordered by name
func (r *LanguageRepository) GetActive() ([]models.Language, error) {
	return r.queryLanguages(`SELECT ` + languageColumns + ` FROM languages WHERE is_active = 1 ORDER BY name`)
}

// GetByID returns a language by ID
func (r *LanguageRepository) GetByID(id int) (*models.Language, error) {
	var lang models.Language
	err := scanLanguage(r.db.QueryRow(`SELECT `+languageColumns+` FROM languages WHERE id = ?`, id), &lang)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lang, nil
}

// GetByCode returns a language by its code; activeOnly skips inactive languages
func (r *LanguageRepository) GetByCode(code string, activeOnly bool) (*models.Language, error) {
	query := `SELECT ` + languageColumns + ` FROM languages WHERE code = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}

	var lang models.Language
	err := scanLanguage(r.db.QueryRow(query, code), &lang)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lang, nil
}

// GetActiveByID returns an active language by ID
func (r *LanguageRepository) GetActiveByID(id int) (*models.Language, error) {
	lang, err := r.GetByID(id)
	if err != nil || lang == nil || !lang.IsActive {
		return nil, err
	}
	return lang, nil
}

// GetByIDs returns the active languages matching ids, ordered by name.
// Unknown or inactive ids are silently skipped.
func (r *LanguageRepository) GetByIDs(ids []int) ([]models.Language, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + languageColumns + ` FROM languages
		WHERE is_active = 1 AND id IN (` + placeholders(len(ids)) + `) ORDER BY name`
	return r.queryLanguages(query, args...)
}

// GetByCodes returns the active languages matching codes, ordered by name
func (r *LanguageRepository) GetByCodes(codes []string) ([]models.Language, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(codes))
	for i, code := range codes {
		args[i] = code
	}
	query := `SELECT ` + languageColumns + ` FROM languages
		WHERE is_active = 1 AND code IN (` + placeholders(len(codes)) + `) ORDER BY name`
	return r.queryLanguages(query, args...)
}

// Create inserts a language
func (r *LanguageRepository) Create(lang *models.Language) error {
	if lang.Direction == "" {
		lang.Direction = models.DirectionLTR
	}
	if lang.Script == "" {
		lang.Script = "latin"
	}

	result, err := r.db.Exec(`INSERT INTO languages (code, name, native_name, direction, script, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		lang.Code, lang.Name, lang.NativeName, lang.Direction, lang.Script, lang.IsActive)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	lang.ID = int(id)
	return nil
}

// SetActive toggles whether a language can be picked for new campaigns
func (r *LanguageRepository) SetActive(id int, active bool) error {
	_, err := r.db.Exec(`UPDATE languages SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, active, id)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
