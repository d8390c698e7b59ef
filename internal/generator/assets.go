package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
	"github.com/AndrewDonelson/campaign-studio/internal/utils"
	"github.com/AndrewDonelson/campaign-studio/pkg/overlay"
)

// AssetInput is one rendered image waiting to be stored
type AssetInput struct {
	Product     models.Product
	Language    models.Language
	AspectRatio string
	Image       []byte
	Prompt      string
	Seconds     float64
	Reference   bool
	Note        string
}

// SaveAsset overlays the campaign message on the image, writes the organized
// copy and the media copy, and upserts the asset row
func (g *Generator) SaveAsset(ctx context.Context, brief *models.Brief, run *models.GenerationRun, in AssetInput) (*models.GeneratedAsset, error) {
	img, err := imaging.Decode(bytes.NewReader(in.Image))
	if err != nil {
		return nil, fmt.Errorf("failed to decode generated image: %w", err)
	}

	message := g.ResolveMessage(ctx, brief, in.Language)

	final, err := overlay.Apply(img, message, in.AspectRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to apply text overlay: %w", err)
	}

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, final, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode asset: %w", err)
	}

	now := time.Now()
	slug := utils.ProductSlug(in.Product.Name)

	organized := filepath.Join(utils.GetOutputsPath(""), slug, in.Language.Code, utils.RatioDir(in.AspectRatio),
		fmt.Sprintf("campaign_%s.jpg", now.Format("20060102_150405")))
	if err := g.writeMedia(organized, encoded.Bytes()); err != nil {
		return nil, err
	}

	seconds := in.Seconds
	asset := &models.GeneratedAsset{
		BriefID:               brief.ID,
		RunID:                 run.ID,
		ProductName:           in.Product.Name,
		AspectRatio:           in.AspectRatio,
		LanguageID:            in.Language.ID,
		TranslationStatus:     models.TranslationOriginal,
		AIPrompt:              in.Prompt,
		GenerationTimeSeconds: &seconds,
		OrganizedFilePath:     filepath.ToSlash(organized),
		IsReferenceImage:      in.Reference,
		ReferenceImageNote:    in.Note,
	}
	if in.Language.ID != brief.PrimaryLanguage.ID {
		asset.TranslationStatus = models.TranslationTranslated
		asset.TranslatedCampaignMessage = message
	}

	if err := g.assets.Upsert(asset); err != nil {
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}

	prefix := ""
	if in.Reference {
		prefix = "ref_"
	}
	mediaName, err := g.uniqueMediaName(fmt.Sprintf("%s%s_%s_%d", prefix, slug, utils.RatioDir(in.AspectRatio), now.Unix()))
	if err != nil {
		return nil, err
	}
	if err := g.writeMedia(mediaName, encoded.Bytes()); err != nil {
		return nil, err
	}
	if err := g.assets.SetImageFile(asset.ID, filepath.ToSlash(mediaName), asset.OrganizedFilePath); err != nil {
		return nil, fmt.Errorf("failed to update asset file: %w", err)
	}

	saved, err := g.assets.GetByID(asset.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("asset %d disappeared after save", asset.ID)
	}
	return saved, nil
}

// ResolveMessage returns the campaign message for lang. English and the
// primary language get the original. Other languages reuse a translation
// already stored for the brief, or ask the translator; on failure the
// original message is used.
func (g *Generator) ResolveMessage(ctx context.Context, brief *models.Brief, lang models.Language) string {
	if lang.Code == models.DefaultLanguageCode || lang.ID == brief.PrimaryLanguage.ID {
		return brief.CampaignMessage
	}

	cached, err := g.assets.FindTranslatedMessage(brief.ID, lang.ID)
	if err != nil {
		log.Warn().Err(err).Str("language", lang.Code).Msg("Error looking up stored translation")
	}
	if cached != "" {
		return cached
	}

	if g.translator == nil {
		return brief.CampaignMessage
	}
	translated, err := g.translator.Translate(ctx, brief.CampaignMessage, lang.Code, brief.PrimaryLanguage.Code)
	if err != nil {
		log.Warn().Err(err).Str("language", lang.Code).Msg("Translation failed, using original message")
		return brief.CampaignMessage
	}
	return translated
}

// uniqueMediaName returns generated/<base>.jpg, adding a short random suffix
// when that file already exists
func (g *Generator) uniqueMediaName(base string) (string, error) {
	name := filepath.Join(utils.GetGeneratedPath(""), base+".jpg")
	_, err := os.Stat(filepath.Join(g.cfg.MediaRoot, name))
	if errors.Is(err, os.ErrNotExist) {
		return name, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check media file: %w", err)
	}
	return filepath.Join(utils.GetGeneratedPath(""), fmt.Sprintf("%s_%s.jpg", base, uuid.NewString()[:8])), nil
}

// writeMedia writes data to rel under the media root
func (g *Generator) writeMedia(rel string, data []byte) error {
	path := filepath.Join(g.cfg.MediaRoot, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}
