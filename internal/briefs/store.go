package briefs

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/internal/utils"
	"github.com/AndrewDonelson/campaign-studio/pkg/imagegen"
)

// Reference is an uploaded reference image
type Reference struct {
	Name string
	Data io.Reader
}

// Store creates briefs and keeps their reference images under the media root
type Store struct {
	briefs    *database.BriefRepository
	languages *database.LanguageRepository
	mediaRoot string
}

// NewStore creates a brief store
func NewStore(db *sql.DB, mediaRoot string) *Store {
	return &Store{
		briefs:    database.NewBriefRepository(db),
		languages: database.NewLanguageRepository(db),
		mediaRoot: mediaRoot,
	}
}

// Languages returns the lookup used to resolve brief languages
func (s *Store) Languages() LanguageLookup {
	return s.languages
}

// Create stores brief. A reference image is normalized first; when that
// fails nothing is stored and a ValidationError is returned.
func (s *Store) Create(brief *models.Brief, ref *Reference) error {
	if ref != nil {
		rel, err := s.SaveReference(ref)
		if err != nil {
			return err
		}
		brief.ReferenceImagePath = rel
	}

	if err := s.briefs.Create(brief); err != nil {
		if brief.ReferenceImagePath != "" {
			os.Remove(filepath.Join(s.mediaRoot, brief.ReferenceImagePath))
		}
		return fmt.Errorf("failed to create brief: %w", err)
	}

	log.Info().Int("brief_id", brief.ID).Str("title", brief.Title).Bool("reference", brief.HasReferenceImage()).Msg("Brief created")
	return nil
}

// Import parses an uploaded JSON or YAML brief, resolves its languages and
// stores it
func (s *Store) Import(filename string, content []byte, ref *Reference) (*models.Brief, error) {
	data, err := ParseBriefFile(filename, content)
	if err != nil {
		return nil, err
	}

	primary, additional, err := ResolveLanguages(s.languages, data.PrimaryLanguage, data.AdditionalLanguages)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve languages: %w", err)
	}

	brief := data.ToBrief(primary, additional)
	if err := s.Create(brief, ref); err != nil {
		return nil, err
	}
	return brief, nil
}

// SaveReference normalizes ref to 1024x1024 and writes it to
// reference_images/. The returned path is relative to the media root.
func (s *Store) SaveReference(ref *Reference) (string, error) {
	normalized, err := imagegen.NormalizeReference(ref.Data, ref.Name)
	if err != nil {
		return "", &ValidationError{Field: "reference_image", Message: err.Error()}
	}

	dir := utils.GetReferenceImagesPath(s.mediaRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reference image directory: %w", err)
	}

	name := normalized.Filename
	if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
		name = strings.TrimSuffix(name, ".jpg") + "_" + uuid.NewString()[:8] + ".jpg"
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to check reference image: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), normalized.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to save reference image: %w", err)
	}

	log.Debug().Str("file", name).Str("note", normalized.Metadata.ProcessingNote).Msg("Reference image normalized")
	return filepath.ToSlash(filepath.Join(utils.GetReferenceImagesPath(""), name)), nil
}
