package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/generator"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/internal/services/ai"
	"github.com/AndrewDonelson/campaign-studio/pkg/imagegen"
)

var generateCmd = &cobra.Command{
	Use:   "generate <brief-id>",
	Short: "Generate every asset of a brief",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		brief, err := loadBrief(args[0])
		if err != nil {
			return err
		}

		cfg := state.cfg
		if !cfg.AIDevMode && !cfg.HasAPIKey() {
			return errors.New("OPENAI_API_KEY is not set; pass --dev to use mock images")
		}
		var api imagegen.API
		provider := ai.Provider(ai.MockProvider{})
		if !cfg.AIDevMode {
			api = imagegen.NewOpenAIClient(imagegen.ClientConfig{
				APIKey:            cfg.OpenAIAPIKey,
				BaseURL:           cfg.OpenAIBaseURL,
				Model:             cfg.ImageModel,
				RequestsPerMinute: cfg.OpenAIRequestsPerMinute,
			})
			provider = ai.NewOpenAIProvider(ai.OpenAIConfig{
				APIKey:            cfg.OpenAIAPIKey,
				BaseURL:           cfg.OpenAIBaseURL,
				Model:             cfg.TranslationModel,
				RequestsPerMinute: cfg.OpenAIRequestsPerMinute,
			})
		}

		gen := generator.New(state.db, api, ai.NewTranslationService(provider), nil, generator.Config{
			MediaRoot:    cfg.StoragePath,
			DevMode:      cfg.AIDevMode,
			UseOutpaint:  cfg.UseOutpaintMethod,
			CostPerAsset: cfg.CostPerAssetUSD,
		})

		cost := gen.EstimateCost(brief)
		if cost > cfg.CostWarningUSD {
			log.Warn().Float64("estimated_cost_usd", cost).Msg("Generation exceeds the cost warning threshold")
		}

		run, assets, err := gen.Generate(cmd.Context(), brief)
		if errors.Is(err, database.ErrRunActive) {
			return fmt.Errorf("brief %d already has a queued or running generation", brief.ID)
		}
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Run #%d generated %d assets in %.1fs\n", run.RunIndex, len(assets), run.TotalGenerationTime)
		for i := range assets {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %s\n", assets[i].DisplayName(), assets[i].OrganizedFilePath)
		}
		return nil
	},
}

func loadBrief(arg string) (*models.Brief, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid brief id %q", arg)
	}
	brief, err := database.NewBriefRepository(state.db).GetByID(id)
	if err != nil {
		return nil, err
	}
	if brief == nil {
		return nil, fmt.Errorf("brief %d not found", id)
	}
	return brief, nil
}
