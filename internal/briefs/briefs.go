// Package briefs validates and parses campaign briefs coming from forms and
// uploaded JSON or YAML files.
package briefs

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
)

// ValidationError carries a message that is safe to show to the user.
// Field names the input at fault when it is not the brief itself.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RequiredFields must be present in an uploaded brief file, in this order
var RequiredFields = []string{"title", "target_region", "target_audience", "campaign_message", "products"}

// BriefData is a brief decoded from an uploaded file. PrimaryLanguage and
// AdditionalLanguages hold either language codes or numeric ids.
type BriefData struct {
	Title               string
	TargetRegion        string
	TargetAudience      string
	CampaignMessage     string
	Products            []models.Product
	PrimaryLanguage     interface{}
	AdditionalLanguages []interface{}
	TranslationConfig   map[string]interface{}
}

// ParseProducts validates the products JSON entered on the create form
func ParseProducts(raw string) ([]models.Product, error) {
	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, invalid("Invalid JSON format: %s", err)
	}

	list, ok := decoded.([]interface{})
	if !ok {
		return nil, invalid("Products must be a JSON array")
	}
	if len(list) < 1 {
		return nil, invalid("At least 1 product is required")
	}

	return productsFromList(list)
}

func productsFromList(list []interface{}) ([]models.Product, error) {
	products := make([]models.Product, 0, len(list))
	for i, item := range list {
		obj, ok := toStringMap(item)
		if !ok {
			return nil, invalid("Product %d must be an object", i+1)
		}

		rawName, ok := obj["name"]
		if !ok {
			return nil, invalid("Product %d missing 'name' field", i+1)
		}
		name, _ := rawName.(string)
		if strings.TrimSpace(name) == "" {
			return nil, invalid("Product %d name cannot be empty", i+1)
		}

		product := models.Product{Name: name}
		if t, ok := obj["type"]; ok && t != nil {
			product.Type = fmt.Sprint(t)
		}
		products = append(products, product)
	}
	return products, nil
}

// ParseBriefFile decodes and validates an uploaded brief. JSON is used for
// .json files, YAML for .yaml and .yml.
func ParseBriefFile(filename string, content []byte) (*BriefData, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, invalid("File must be JSON or YAML format")
	}

	if !utf8.Valid(content) {
		return nil, invalid("File encoding not supported")
	}

	var decoded interface{}
	var err error
	if ext == ".json" {
		err = json.Unmarshal(content, &decoded)
	} else {
		err = yaml.Unmarshal(content, &decoded)
	}
	if err != nil {
		return nil, invalid("Invalid file format: %s", err)
	}

	data, ok := toStringMap(decoded)
	if !ok {
		return nil, invalid("Invalid file format: expected a mapping of brief fields")
	}

	var missing []string
	for _, field := range RequiredFields {
		if _, ok := data[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, invalid("Missing required fields: %s", strings.Join(missing, ", "))
	}

	list, ok := data["products"].([]interface{})
	if !ok || len(list) < 1 {
		return nil, invalid("Must include at least 1 product")
	}
	products, err := productsFromList(list)
	if err != nil {
		return nil, err
	}

	brief := &BriefData{
		Title:           toString(data["title"]),
		TargetRegion:    toString(data["target_region"]),
		TargetAudience:  toString(data["target_audience"]),
		CampaignMessage: toString(data["campaign_message"]),
		Products:        products,
		PrimaryLanguage: data["primary_language"],
	}

	if extra, ok := data["additional_languages"].([]interface{}); ok {
		brief.AdditionalLanguages = extra
	}
	if cfg, ok := toStringMap(data["translation_config"]); ok {
		brief.TranslationConfig = cfg
	}

	return brief, nil
}

// ToBrief builds the brief to store once languages are resolved
func (d *BriefData) ToBrief(primary *models.Language, additional []models.Language) *models.Brief {
	brief := &models.Brief{
		Title:              d.Title,
		TargetRegion:       d.TargetRegion,
		TargetAudience:     d.TargetAudience,
		CampaignMessage:    d.CampaignMessage,
		Products:           d.Products,
		SupportedLanguages: additional,
		TranslationConfig:  d.TranslationConfig,
	}
	if primary != nil {
		brief.PrimaryLanguageID = primary.ID
		brief.PrimaryLanguage = primary
	}
	return brief
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// toStringMap accepts both decoder map flavours
func toStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
