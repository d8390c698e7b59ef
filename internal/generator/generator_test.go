package generator

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/internal/services"
	"github.com/AndrewDonelson/campaign-studio/internal/services/ai"
	"github.com/AndrewDonelson/campaign-studio/pkg/imagegen"
	"github.com/AndrewDonelson/campaign-studio/pkg/imagegen/mocks"
)

type countingTranslator struct {
	calls atomic.Int32
	err   error
}

func (c *countingTranslator) Translate(ctx context.Context, text, target, source string) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return strings.ToUpper(target) + ": " + text, nil
}

type fixture struct {
	db    *sql.DB
	media string
	brief *models.Brief
}

func newFixture(t *testing.T, products []models.Product, extraLangs ...string) *fixture {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Open(filepath.Join(dir, "campaigns.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedLanguages(db))

	langs := database.NewLanguageRepository(db)
	en, err := langs.GetByCode("en", false)
	require.NoError(t, err)

	brief := &models.Brief{
		Title:             "Summer Launch",
		TargetRegion:      "Coastal cities",
		TargetAudience:    "18-30",
		CampaignMessage:   "Stay fresh",
		Products:          products,
		PrimaryLanguageID: en.ID,
	}
	for _, code := range extraLangs {
		lang, err := langs.GetByCode(code, false)
		require.NoError(t, err)
		brief.SupportedLanguages = append(brief.SupportedLanguages, *lang)
	}
	require.NoError(t, database.NewBriefRepository(db).Create(brief))

	return &fixture{db: db, media: filepath.Join(dir, "media"), brief: brief}
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(1024, 1024, c), imaging.PNG))
	return buf.Bytes()
}

func TestGenerateDevMode(t *testing.T) {
	f := newFixture(t, []models.Product{{Name: "Fizz", Type: "soda"}, {Name: "Fizz Zero"}}, "fr")

	pb := services.NewProgressBroadcaster()
	updates := pb.Subscribe()
	defer pb.Unsubscribe(updates)

	g := New(f.db, nil, ai.NewTranslationService(ai.MockProvider{}), pb, Config{MediaRoot: f.media, UseOutpaint: true})
	assert.True(t, g.DevMode())

	run, assets, err := g.Generate(context.Background(), f.brief)
	require.NoError(t, err)
	require.Len(t, assets, 12)

	assert.Equal(t, 1, run.RunIndex)
	assert.Equal(t, models.StatusCompleted, run.Status)
	assert.True(t, run.Success)
	assert.Equal(t, 12, run.AssetsGenerated)
	require.NotNil(t, run.EstimatedCostUSD)
	assert.InDelta(t, 0.48, *run.EstimatedCostUSD, 1e-9)
	assert.NotNil(t, run.CompletedAt)

	stored, err := database.NewRunRepository(f.db).GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, 12, stored.AssetsGenerated)

	for _, a := range assets {
		assert.FileExists(t, filepath.Join(f.media, a.ImageFile))
		assert.FileExists(t, filepath.Join(f.media, a.OrganizedFilePath))
		assert.True(t, strings.HasPrefix(a.OrganizedFilePath, "outputs/"+a.OrganizedFolder()+"/campaign_"), a.OrganizedFilePath)

		img, err := imaging.Open(filepath.Join(f.media, a.ImageFile))
		require.NoError(t, err)
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		switch a.AspectRatio {
		case models.RatioSquare:
			assert.Equal(t, []int{1024, 1024}, []int{w, h})
		case models.RatioStory:
			assert.Equal(t, []int{576, 1024}, []int{w, h})
		case models.RatioLandscape:
			assert.Equal(t, []int{1024, 576}, []int{w, h})
		}

		if a.LanguageCode() == "fr" {
			assert.Equal(t, models.TranslationTranslated, a.TranslationStatus)
			assert.Equal(t, "[FR] Stay fresh", a.TranslatedCampaignMessage)
		} else {
			assert.Equal(t, models.TranslationOriginal, a.TranslationStatus)
			assert.Empty(t, a.TranslatedCampaignMessage)
		}
	}

	var last services.ProgressUpdate
	count := 0
	for len(updates) > 0 {
		last = <-updates
		count++
	}
	assert.Equal(t, 10, count) // subscriber buffer is full, the rest were dropped
	assert.Equal(t, run.ID, last.RunID)

	_, err = os.Stat(filepath.Join(f.media, "logs", "brief_1", "run_1.log"))
	assert.NoError(t, err)
}

func TestGenerateOutpaintUsesImageAPI(t *testing.T) {
	f := newFixture(t, []models.Product{{Name: "Fizz"}})

	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, prompt string) ([]byte, error) {
			assert.Contains(t, prompt, "COMPOSITION FOR SQUARE FORMAT")
			assert.Contains(t, prompt, "Location: Coastal cities environment")
			return solidPNG(t, color.NRGBA{R: 255, A: 255}), nil
		}).Times(1)
	api.EXPECT().Edit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(imagegen.MockAPI{}.Edit).
		Times(4)

	g := New(f.db, api, nil, nil, Config{MediaRoot: f.media, UseOutpaint: true})
	run, assets, err := g.Generate(context.Background(), f.brief)
	require.NoError(t, err)
	require.Len(t, assets, 3)

	ratios := []string{assets[0].AspectRatio, assets[1].AspectRatio, assets[2].AspectRatio}
	assert.Equal(t, []string{"1:1", "16:9", "9:16"}, ratios)
	assert.Contains(t, assets[1].AIPrompt, "LANDSCAPE EXTENSION (16:9)")
	assert.Contains(t, assets[2].AIPrompt, "VERTICAL EXTENSION (9:16)")
	assert.Equal(t, 3, run.AssetsGenerated)
}

func TestGenerateSeparateMode(t *testing.T) {
	f := newFixture(t, []models.Product{{Name: "Fizz", Type: "soda"}})

	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	var prompts []string
	api.EXPECT().Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, prompt string) ([]byte, error) {
			prompts = append(prompts, prompt)
			return solidPNG(t, color.White), nil
		}).Times(3)

	g := New(f.db, api, nil, nil, Config{MediaRoot: f.media, UseOutpaint: false})
	_, assets, err := g.Generate(context.Background(), f.brief)
	require.NoError(t, err)
	require.Len(t, assets, 3)
	require.Len(t, prompts, 3)

	assert.Contains(t, prompts[0], "Professional product photography of Fizz (soda).")
	assert.Contains(t, prompts[0], "Language context: English")
	assert.Contains(t, prompts[0], "Composed for square format (1:1)")
	assert.Contains(t, prompts[1], "vertical story format (9:16)")
	assert.Contains(t, prompts[2], "landscape format (16:9)")
}

func TestGenerateFailureMarksRun(t *testing.T) {
	f := newFixture(t, []models.Product{{Name: "Fizz"}})

	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(nil, imagegen.ErrQuotaExceeded)

	pb := services.NewProgressBroadcaster()
	updates := pb.Subscribe()
	defer pb.Unsubscribe(updates)

	g := New(f.db, api, nil, pb, Config{MediaRoot: f.media, UseOutpaint: true})
	run, assets, err := g.Generate(context.Background(), f.brief)
	require.ErrorIs(t, err, imagegen.ErrQuotaExceeded)
	assert.Empty(t, assets)

	stored, err := database.NewRunRepository(f.db).GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.False(t, stored.Success)
	assert.Equal(t, imagegen.ErrQuotaExceeded.Error(), stored.ErrorMessage)
	assert.NotNil(t, stored.CompletedAt)

	var last services.ProgressUpdate
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, "failed", last.CurrentStep)
	assert.Equal(t, imagegen.ErrQuotaExceeded.Error(), last.ErrorMessage)
}

func TestGenerateFromReferenceImage(t *testing.T) {
	f := newFixture(t, []models.Product{{Name: "Trail Boot"}}, "de")

	ref, err := imagegen.NormalizeReference(bytes.NewReader(solidPNG(t, color.NRGBA{G: 200, A: 255})), "boot.png")
	require.NoError(t, err)
	rel := filepath.Join("reference_images", ref.Filename)
	require.NoError(t, os.MkdirAll(filepath.Join(f.media, "reference_images"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(f.media, rel), ref.Data, 0644))
	f.brief.ReferenceImagePath = rel

	g := New(f.db, nil, ai.MockProvider{}, nil, Config{MediaRoot: f.media, DevMode: true, UseOutpaint: true})
	_, assets, err := g.Generate(context.Background(), f.brief)
	require.NoError(t, err)
	require.Len(t, assets, 6)

	for _, a := range assets {
		assert.True(t, a.IsReferenceImage)
		assert.Equal(t, "Normalized from 1024x1024 to 1024x1024 pixels", a.ReferenceImageNote)
		assert.Equal(t, "Reference image: "+a.ReferenceImageNote, a.AIPrompt)
		require.NotNil(t, a.GenerationTimeSeconds)
		assert.Zero(t, *a.GenerationTimeSeconds)
		assert.True(t, strings.HasPrefix(a.ImageFile, "generated/ref_trail-boot_"), a.ImageFile)
	}
}

func TestResolveMessageReusesStoredTranslation(t *testing.T) {
	f := newFixture(t, []models.Product{{Name: "Fizz"}}, "es")
	translator := &countingTranslator{}

	g := New(f.db, nil, translator, nil, Config{MediaRoot: f.media, DevMode: true, UseOutpaint: true})
	_, _, err := g.Generate(context.Background(), f.brief)
	require.NoError(t, err)
	// every es asset of the first run is saved before any translation is stored
	first := translator.calls.Load()
	assert.GreaterOrEqual(t, first, int32(1))

	_, assets, err := g.Generate(context.Background(), f.brief)
	require.NoError(t, err)
	assert.Equal(t, first, translator.calls.Load())
	for _, a := range assets {
		if a.LanguageCode() == "es" {
			assert.Equal(t, "ES: Stay fresh", a.TranslatedCampaignMessage)
		}
	}

	es := f.brief.SupportedLanguages[0]
	en := *f.brief.PrimaryLanguage
	assert.Equal(t, "Stay fresh", g.ResolveMessage(context.Background(), f.brief, en))
	assert.Equal(t, "ES: Stay fresh", g.ResolveMessage(context.Background(), f.brief, es))
}

func TestResolveMessageFallsBackOnError(t *testing.T) {
	f := newFixture(t, []models.Product{{Name: "Fizz"}}, "it")
	g := New(f.db, nil, &countingTranslator{err: errors.New("offline")}, nil, Config{MediaRoot: f.media})

	it := f.brief.SupportedLanguages[0]
	assert.Equal(t, "Stay fresh", g.ResolveMessage(context.Background(), f.brief, it))
}

func TestEstimateCost(t *testing.T) {
	f := newFixture(t, []models.Product{{Name: "A"}, {Name: "B"}}, "fr", "de")
	g := New(f.db, nil, nil, nil, Config{MediaRoot: f.media})
	// 2 products x 3 ratios x 3 languages
	assert.InDelta(t, 18*0.040, g.EstimateCost(f.brief), 1e-9)

	g = New(f.db, nil, nil, nil, Config{MediaRoot: f.media, CostPerAsset: 0.08})
	assert.InDelta(t, 18*0.08, g.EstimateCost(f.brief), 1e-9)
}

func TestUniqueMediaName(t *testing.T) {
	f := newFixture(t, []models.Product{{Name: "A"}})
	g := New(f.db, nil, nil, nil, Config{MediaRoot: f.media})

	name, err := g.uniqueMediaName("fizz_1x1_100")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("generated", "fizz_1x1_100.jpg"), name)

	require.NoError(t, g.writeMedia(name, []byte("x")))
	second, err := g.uniqueMediaName("fizz_1x1_100")
	require.NoError(t, err)
	assert.NotEqual(t, name, second)
	assert.True(t, strings.HasPrefix(filepath.Base(second), "fizz_1x1_100_"))
}

func TestPrompts(t *testing.T) {
	brief := &models.Brief{TargetRegion: "Alps", TargetAudience: "hikers", CampaignMessage: "Go far"}
	base := BasePrompt(models.Product{Name: "Boot"}, brief)
	assert.True(t, strings.HasPrefix(base, "Professional product photography of Boot (product) for social media campaign."))
	assert.Contains(t, base, "Leave 20% margin at bottom for text overlay")
	assert.True(t, strings.HasPrefix(LandscapePrompt(base), base))
	assert.Equal(t, "Professional background for Boot product campaign", ReferenceBackgroundPrompt("Boot"))
	assert.Contains(t, AspectPrompt("core", "unknown"), "square format")
}
