package database

import (
	"database/sql"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultLanguages are inserted on first start
var DefaultLanguages = []models.Language{
	{Code: "en", Name: "English", NativeName: "English", Direction: models.DirectionLTR, Script: "latin", IsActive: true},
	{Code: "es", Name: "Spanish", NativeName: "Español", Direction: models.DirectionLTR, Script: "latin", IsActive: true},
	{Code: "fr", Name: "French", NativeName: "Français", Direction: models.DirectionLTR, Script: "latin", IsActive: true},
	{Code: "de", Name: "German", NativeName: "Deutsch", Direction: models.DirectionLTR, Script: "latin", IsActive: true},
	{Code: "it", Name: "Italian", NativeName: "Italiano", Direction: models.DirectionLTR, Script: "latin", IsActive: true},
	{Code: "pt", Name: "Portuguese", NativeName: "Português", Direction: models.DirectionLTR, Script: "latin", IsActive: true},
	{Code: "ja", Name: "Japanese", NativeName: "日本語", Direction: models.DirectionLTR, Script: "hiragana", IsActive: true},
	{Code: "ko", Name: "Korean", NativeName: "한국어", Direction: models.DirectionLTR, Script: "hangul", IsActive: true},
	{Code: "zh", Name: "Chinese", NativeName: "中文", Direction: models.DirectionLTR, Script: "han", IsActive: true},
	{Code: "ar", Name: "Arabic", NativeName: "العربية", Direction: models.DirectionRTL, Script: "arabic", IsActive: true},
	{Code: "he", Name: "Hebrew", NativeName: "עברית", Direction: models.DirectionRTL, Script: "hebrew", IsActive: true},
	{Code: "ru", Name: "Russian", NativeName: "Русский", Direction: models.DirectionLTR, Script: "cyrillic", IsActive: true},
}

// SeedLanguages inserts the default languages that are missing
func SeedLanguages(db *sql.DB) error {
	repo := NewLanguageRepository(db)
	added := 0
	for _, lang := range DefaultLanguages {
		existing, err := repo.GetByCode(lang.Code, false)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		l := lang
		if err := repo.Create(&l); err != nil {
			return err
		}
		added++
	}
	if added > 0 {
		log.Info().Int("count", added).Msg("Seeded languages")
	}
	return nil
}

// SeedDemoBriefs inserts the demo templates when the table is empty
func SeedDemoBriefs(db *sql.DB) error {
	demos := NewDemoBriefRepository(db)
	count, err := demos.Count()
	if err != nil || count > 0 {
		return err
	}

	langs := NewLanguageRepository(db)
	byCode := func(code string) *models.Language {
		lang, err := langs.GetByCode(code, true)
		if err != nil {
			return nil
		}
		return lang
	}

	english := byCode("en")
	if english == nil {
		log.Warn().Msg("English language missing, demo briefs not seeded")
		return nil
	}

	templates := []struct {
		demo  models.DemoBrief
		extra []string
	}{
		{
			demo: models.DemoBrief{
				Title:           "Pacific Pulse Energy Drink Launch",
				TargetRegion:    "Pacific Coast US/Mexico border cities",
				TargetAudience:  "18-30, urban, multilingual (EN/DE/FR), health-conscious but fun-seeking",
				CampaignMessage: "Natural energy that connects you to the coastal lifestyle",
				Products: []models.Product{
					{Name: "Pacific Pulse Original", Type: "Energy Drink"},
					{Name: "Pacific Pulse Zero", Type: "Zero-Sugar Energy Drink"},
				},
				Description: "Beverage launch in three languages",
				IsActive:    true,
			},
			extra: []string{"de", "fr"},
		},
		{
			demo: models.DemoBrief{
				Title:           "Sakura Skin Serum Spring Campaign",
				TargetRegion:    "Tokyo, Seoul and Los Angeles",
				TargetAudience:  "25-40, skincare enthusiasts, premium beauty buyers",
				CampaignMessage: "Bloom into your natural glow this spring",
				Products: []models.Product{
					{Name: "Sakura Glow Serum", Type: "skincare serum"},
				},
				Description: "Asian market beauty launch",
				IsActive:    true,
			},
			extra: []string{"ja", "ko"},
		},
		{
			demo: models.DemoBrief{
				Title:           "Desert Trail Hiking Boots",
				TargetRegion:    "Middle East and North Africa",
				TargetAudience:  "20-45, outdoor adventurers, weekend hikers",
				CampaignMessage: "Built for every trail the desert throws at you",
				Products: []models.Product{
					{Name: "Desert Trail Pro", Type: "hiking boots"},
					{Name: "Desert Trail Lite", Type: "trail shoes"},
				},
				Description: "Right-to-left language showcase",
				IsActive:    true,
			},
			extra: []string{"ar", "he"},
		},
	}

	for _, t := range templates {
		demo := t.demo
		demo.PrimaryLanguageID = english.ID
		for _, code := range t.extra {
			if lang := byCode(code); lang != nil {
				demo.SupportedLanguages = append(demo.SupportedLanguages, *lang)
			}
		}
		if err := demos.Create(&demo); err != nil {
			return err
		}
	}

	log.Info().Int("count", len(templates)).Msg("Seeded demo briefs")
	return nil
}
