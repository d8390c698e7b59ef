package briefs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

// LanguageLookup is the part of the language repository used to resolve
// languages referenced by a brief
type LanguageLookup interface {
	GetByCode(code string, activeOnly bool) (*models.Language, error)
	GetActiveByID(id int) (*models.Language, error)
}

// ResolveLanguages maps a primary language reference (code or id) and a list
// of additional references to stored languages. An unknown or inactive
// primary language falls back to English; unknown additional languages are
// skipped.
func ResolveLanguages(repo LanguageLookup, primary interface{}, additional []interface{}) (*models.Language, []models.Language, error) {
	var primaryLang *models.Language
	if primary != nil {
		lang, err := lookup(repo, primary)
		if err != nil {
			return nil, nil, err
		}
		primaryLang = lang
	}

	if primaryLang == nil {
		lang, err := repo.GetByCode(models.DefaultLanguageCode, false)
		if err != nil {
			return nil, nil, err
		}
		if lang == nil {
			return nil, nil, fmt.Errorf("default language %q is not configured", models.DefaultLanguageCode)
		}
		primaryLang = lang
	}

	var langs []models.Language
	seen := map[int]bool{primaryLang.ID: true}
	for _, ref := range additional {
		lang, err := lookup(repo, ref)
		if err != nil {
			return nil, nil, err
		}
		if lang == nil || seen[lang.ID] {
			continue
		}
		seen[lang.ID] = true
		langs = append(langs, *lang)
	}

	return primaryLang, langs, nil
}

// ResolveFormLanguages resolves the language choices of the create form. It
// is stricter than ResolveLanguages: a primary id of 0 means English, but an
// unknown or inactive id, or English among the additional languages, is a
// ValidationError on the offending field.
func ResolveFormLanguages(repo LanguageLookup, primaryID int, additionalIDs []int) (*models.Language, []models.Language, error) {
	var primary *models.Language
	var err error
	if primaryID > 0 {
		primary, err = repo.GetActiveByID(primaryID)
		if err != nil {
			return nil, nil, err
		}
		if primary == nil {
			return nil, nil, invalidChoice("primary_language", primaryID)
		}
	} else {
		primary, err = repo.GetByCode(models.DefaultLanguageCode, false)
		if err != nil {
			return nil, nil, err
		}
		if primary == nil {
			return nil, nil, fmt.Errorf("default language %q is not configured", models.DefaultLanguageCode)
		}
	}

	var langs []models.Language
	seen := map[int]bool{primary.ID: true}
	for _, id := range additionalIDs {
		lang, err := repo.GetActiveByID(id)
		if err != nil {
			return nil, nil, err
		}
		if lang == nil || lang.Code == models.DefaultLanguageCode {
			return nil, nil, invalidChoice("additional_languages", id)
		}
		if seen[lang.ID] {
			continue
		}
		seen[lang.ID] = true
		langs = append(langs, *lang)
	}

	return primary, langs, nil
}

func invalidChoice(field string, id int) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", id),
	}
}

func lookup(repo LanguageLookup, ref interface{}) (*models.Language, error) {
	switch v := ref.(type) {
	case string:
		code := strings.TrimSpace(v)
		if code == "" {
			return nil, nil
		}
		return repo.GetByCode(code, true)
	case int:
		return repo.GetActiveByID(v)
	case int64:
		return repo.GetActiveByID(int(v))
	case uint64:
		return repo.GetActiveByID(int(v))
	case float64:
		return repo.GetActiveByID(int(v))
	case fmt.Stringer:
		// json.Number and similar
		id, err := strconv.Atoi(v.String())
		if err != nil {
			return nil, nil
		}
		return repo.GetActiveByID(id)
	default:
		return nil, nil
	}
}
