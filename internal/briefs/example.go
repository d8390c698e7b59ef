package briefs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

// ExampleLanguageCodes are the additional languages shown in the example brief
var ExampleLanguageCodes = []string{"de", "fr"}

const exampleProductsJSON = `[
  {
    "name": "Pacific Pulse Original",
    "type": "Energy Drink"
  },
  {
    "name": "Pacific Pulse Zero",
    "type": "Zero-Sugar Energy Drink"
  }
]`

// ExampleData builds the example payload for the create form. languages are
// the active example languages, ordered by name.
func ExampleData(languages []models.Language) map[string]string {
	data := map[string]string{
		"title":            "Pacific Pulse Energy Drink Launch",
		"target_region":    "Pacific Coast US/Mexico border cities",
		"campaign_message": "Natural energy that connects you to the coastal lifestyle",
		"primary_language": "English",
		"products_json":    exampleProductsJSON,
	}

	if len(languages) == 0 {
		data["target_audience"] = "18-30, urban, multilingual, health-conscious but fun-seeking"
		data["language_names"] = "None"
		data["language_ids"] = ""
		data["language_codes_csv"] = ""
		data["tip_text"] = "(English only)"
		return data
	}

	codes := make([]string, len(languages))
	upper := make([]string, len(languages))
	names := make([]string, len(languages))
	ids := make([]string, len(languages))
	for i, lang := range languages {
		codes[i] = lang.Code
		upper[i] = strings.ToUpper(lang.Code)
		names[i] = lang.Name
		ids[i] = strconv.Itoa(lang.ID)
	}

	data["target_audience"] = fmt.Sprintf("18-30, urban, multilingual (EN/%s), health-conscious but fun-seeking", strings.Join(upper, "/"))
	data["language_names"] = strings.Join(names, ", ")
	data["language_ids"] = strings.Join(ids, ",")
	data["language_codes_csv"] = strings.Join(codes, ",")
	data["tip_text"] = "(" + strings.Join(append([]string{"English"}, names...), " + ") + ")"
	return data
}
