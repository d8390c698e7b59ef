// Package generator runs the campaign pipeline: it creates the images of a
// brief for every language, product and aspect ratio, overlays the campaign
// message and stores the results.
package generator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/internal/services"
	"github.com/AndrewDonelson/campaign-studio/pkg/imagegen"
	"github.com/AndrewDonelson/campaign-studio/pkg/logger"
)

// DefaultCostPerAsset is the DALL-E 3 standard 1024x1024 price in USD
const DefaultCostPerAsset = 0.040

// Translator translates the campaign message into a language
type Translator interface {
	Translate(ctx context.Context, text, target, source string) (string, error)
}

// Config controls how images are produced
type Config struct {
	MediaRoot    string
	DevMode      bool
	UseOutpaint  bool
	CostPerAsset float64
}

// Generator produces the assets of a brief
type Generator struct {
	runs        *database.RunRepository
	assets      *database.AssetRepository
	api         imagegen.API
	outpainter  *imagegen.Outpainter
	translator  Translator
	broadcaster *services.ProgressBroadcaster
	cfg         Config
}

// New creates a generator. In dev mode api is replaced by mock images and
// outpainting uses the blur extension. translator and broadcaster may be nil.
func New(db *sql.DB, api imagegen.API, translator Translator, broadcaster *services.ProgressBroadcaster, cfg Config) *Generator {
	if cfg.CostPerAsset <= 0 {
		cfg.CostPerAsset = DefaultCostPerAsset
	}
	if cfg.DevMode || api == nil {
		api = imagegen.MockAPI{}
		cfg.DevMode = true
	}

	return &Generator{
		runs:        database.NewRunRepository(db),
		assets:      database.NewAssetRepository(db),
		api:         api,
		outpainter:  imagegen.NewOutpainter(api, cfg.DevMode),
		translator:  translator,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

// DevMode reports whether the generator avoids the image API
func (g *Generator) DevMode() bool {
	return g.cfg.DevMode
}

// EstimateCost returns the expected cost in USD of generating every asset
// of brief
func (g *Generator) EstimateCost(brief *models.Brief) float64 {
	return float64(brief.ExpectedAssetCount()) * g.cfg.CostPerAsset
}

// Generate creates the next run of brief and executes it. It fails with
// database.ErrRunActive when the brief already has a queued or processing run.
func (g *Generator) Generate(ctx context.Context, brief *models.Brief) (*models.GenerationRun, []models.GeneratedAsset, error) {
	run, err := g.runs.StartNext(brief.ID, models.StatusProcessing)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create generation run: %w", err)
	}

	assets, err := g.Execute(ctx, brief, run)
	return run, assets, err
}

// Execute produces all assets of brief into run. The run is updated with
// the outcome either way; on failure the error is also returned.
func (g *Generator) Execute(ctx context.Context, brief *models.Brief, run *models.GenerationRun) ([]models.GeneratedAsset, error) {
	if run.Status != models.StatusProcessing {
		run.Status = models.StatusProcessing
		if err := g.runs.Update(run); err != nil {
			return nil, fmt.Errorf("failed to mark run processing: %w", err)
		}
	}

	runLog, err := logger.NewRunLogger(g.cfg.MediaRoot, brief.ID, run.RunIndex)
	if err != nil {
		log.Warn().Err(err).Int("run_id", run.ID).Msg("Run log unavailable")
	}

	runLog.Property("brief", brief.Title)
	runLog.Property("products", brief.ProductCount())
	runLog.Property("expected_assets", brief.ExpectedAssetCount())
	runLog.Property("dev_mode", g.cfg.DevMode)
	runLog.Property("outpaint", g.cfg.UseOutpaint)

	p := &pass{
		g:        g,
		brief:    brief,
		run:      run,
		log:      runLog,
		expected: brief.ExpectedAssetCount(),
	}
	g.broadcast(run, "starting", 0, "Generation started")

	if err := p.execute(ctx); err != nil {
		g.fail(run, err)
		runLog.Error("%v", err)
		runLog.Close(false, run.ErrorMessage)
		return p.saved, err
	}

	now := time.Now()
	cost := float64(len(p.saved)) * g.cfg.CostPerAsset
	run.Status = models.StatusCompleted
	run.Success = true
	run.CompletedAt = &now
	run.AssetsGenerated = len(p.saved)
	run.TotalGenerationTime = p.totalTime
	run.EstimatedCostUSD = &cost
	run.ErrorMessage = ""
	if err := g.runs.Update(run); err != nil {
		return p.saved, fmt.Errorf("failed to update run: %w", err)
	}

	message := fmt.Sprintf("Generated %d assets", len(p.saved))
	g.broadcast(run, "completed", 100, message)
	runLog.Close(true, message)
	log.Info().Int("brief_id", brief.ID).Int("run_index", run.RunIndex).Int("assets", len(p.saved)).Msg("Generation completed")

	return p.saved, nil
}

func (g *Generator) fail(run *models.GenerationRun, cause error) {
	now := time.Now()
	run.Status = models.StatusFailed
	run.Success = false
	run.ErrorMessage = cause.Error()
	run.CompletedAt = &now
	if err := g.runs.Update(run); err != nil {
		log.Error().Err(err).Int("run_id", run.ID).Msg("Error updating failed run")
	}
	g.broadcast(run, "failed", 100, "Generation failed")
	log.Error().Err(cause).Int("run_id", run.ID).Msg("Generation failed")
}

func (g *Generator) broadcast(run *models.GenerationRun, step string, progress int, message string) {
	if g.broadcaster == nil {
		return
	}
	g.broadcaster.BroadcastRun(run, step, progress, message)
}

// pass is the state of one Execute call
type pass struct {
	g         *Generator
	brief     *models.Brief
	run       *models.GenerationRun
	log       *logger.RunLogger
	expected  int
	saved     []models.GeneratedAsset
	totalTime float64
}

func (p *pass) execute(ctx context.Context) error {
	if p.brief.PrimaryLanguage == nil {
		return errors.New("brief has no primary language")
	}
	if p.brief.ProductCount() == 0 {
		return errors.New("brief has no products")
	}

	if p.brief.HasReferenceImage() {
		p.log.Phase("REFERENCE", "Building assets from the uploaded reference image")
		return p.referenceAssets(ctx)
	}

	for _, lang := range p.brief.AllLanguages() {
		for _, product := range p.brief.Products {
			if err := ctx.Err(); err != nil {
				return err
			}

			var err error
			if p.g.cfg.UseOutpaint {
				p.log.Phase("OUTPAINT", fmt.Sprintf("%s in %s", product.Name, lang.Name))
				err = p.outpaintAssets(ctx, product, lang)
			} else {
				p.log.Phase("SEPARATE", fmt.Sprintf("%s in %s", product.Name, lang.Name))
				err = p.separateAssets(ctx, product, lang)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// outpaintAssets generates one square and extends it to the other ratios
func (p *pass) outpaintAssets(ctx context.Context, product models.Product, lang models.Language) error {
	base := BasePrompt(product, p.brief)

	start := time.Now()
	square, err := p.g.api.Generate(ctx, base)
	if err != nil {
		return err
	}
	if err := p.save(ctx, AssetInput{Product: product, Language: lang, AspectRatio: models.RatioSquare,
		Image: square, Prompt: base, Seconds: time.Since(start).Seconds()}); err != nil {
		return err
	}

	landscapePrompt := LandscapePrompt(base)
	start = time.Now()
	landscape, err := p.g.outpainter.Landscape(ctx, square, landscapePrompt)
	if err != nil {
		return err
	}
	if err := p.save(ctx, AssetInput{Product: product, Language: lang, AspectRatio: models.RatioLandscape,
		Image: landscape, Prompt: landscapePrompt, Seconds: time.Since(start).Seconds()}); err != nil {
		return err
	}

	verticalPrompt := VerticalPrompt(base)
	start = time.Now()
	vertical, err := p.g.outpainter.Vertical(ctx, square, verticalPrompt)
	if err != nil {
		return err
	}
	return p.save(ctx, AssetInput{Product: product, Language: lang, AspectRatio: models.RatioStory,
		Image: vertical, Prompt: verticalPrompt, Seconds: time.Since(start).Seconds()})
}

// separateAssets generates an independent image per ratio
func (p *pass) separateAssets(ctx context.Context, product models.Product, lang models.Language) error {
	core := CoreScenePrompt(product, p.brief, lang)
	for _, ratio := range models.AspectRatios {
		prompt := AspectPrompt(core, ratio)

		start := time.Now()
		data, err := p.g.api.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		if err := p.save(ctx, AssetInput{Product: product, Language: lang, AspectRatio: ratio,
			Image: data, Prompt: prompt, Seconds: time.Since(start).Seconds()}); err != nil {
			return err
		}
	}
	return nil
}

// referenceAssets reuses the uploaded reference image for every language and
// product. Extensions depend only on the product, so they are built once.
func (p *pass) referenceAssets(ctx context.Context) error {
	data, err := os.ReadFile(filepath.Join(p.g.cfg.MediaRoot, p.brief.ReferenceImagePath))
	if err != nil {
		return fmt.Errorf("failed to read reference image: %w", err)
	}
	note := imagegen.ReadReferenceMetadata(data).ProcessingNote
	p.log.Property("reference_note", note)

	type extended struct{ landscape, vertical []byte }
	cache := make(map[string]extended)

	for _, lang := range p.brief.AllLanguages() {
		for _, product := range p.brief.Products {
			if err := ctx.Err(); err != nil {
				return err
			}

			ext, ok := cache[product.Name]
			if !ok {
				prompt := ReferenceBackgroundPrompt(product.Name)
				if ext.landscape, err = p.g.outpainter.Landscape(ctx, data, prompt); err != nil {
					return err
				}
				if ext.vertical, err = p.g.outpainter.Vertical(ctx, data, prompt); err != nil {
					return err
				}
				cache[product.Name] = ext
			}

			for _, item := range []struct {
				ratio string
				image []byte
			}{
				{models.RatioSquare, data},
				{models.RatioLandscape, ext.landscape},
				{models.RatioStory, ext.vertical},
			} {
				err := p.save(ctx, AssetInput{
					Product:     product,
					Language:    lang,
					AspectRatio: item.ratio,
					Image:       item.image,
					Prompt:      "Reference image: " + note,
					Reference:   true,
					Note:        note,
				})
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *pass) save(ctx context.Context, in AssetInput) error {
	asset, err := p.g.SaveAsset(ctx, p.brief, p.run, in)
	if err != nil {
		return err
	}

	p.saved = append(p.saved, *asset)
	p.totalTime += in.Seconds
	p.log.Asset(in.Product.Name, in.AspectRatio, in.Language.Code, in.Seconds)

	progress := 100
	if p.expected > 0 && len(p.saved) < p.expected {
		progress = len(p.saved) * 100 / p.expected
	}
	p.g.broadcast(p.run, "generating", progress,
		fmt.Sprintf("Saved %s (%d of %d)", asset.DisplayName(), len(p.saved), p.expected))
	return nil
}
