// Package archive packs the generated assets of a brief into a ZIP file
// laid out by product, language and ratio.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

// InfoFile is the name of the brief summary written into every archive
const InfoFile = "brief_info.json"

// BriefInfo is the content of brief_info.json
type BriefInfo struct {
	Title           string           `json:"title"`
	TargetRegion    string           `json:"target_region"`
	TargetAudience  string           `json:"target_audience"`
	CampaignMessage string           `json:"campaign_message"`
	Products        []models.Product `json:"products"`
	GeneratedAssets int              `json:"generated_assets"`
	CreatedAt       string           `json:"created_at"`
}

// EntryName is the path of an asset inside the archive
func EntryName(asset *models.GeneratedAsset) string {
	return fmt.Sprintf("%s/campaign_%d.jpg", asset.OrganizedFolder(), asset.ID)
}

// BuildBriefArchive writes a deflated ZIP of assets to w. Assets whose file
// is missing are skipped.
func BuildBriefArchive(w io.Writer, brief *models.Brief, assets []models.GeneratedAsset, mediaRoot string) error {
	zw := zip.NewWriter(w)

	for i := range assets {
		asset := &assets[i]
		if asset.ImageFile == "" {
			continue
		}
		if err := addFile(zw, EntryName(asset), filepath.Join(mediaRoot, asset.ImageFile)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
	}

	info := BriefInfo{
		Title:           brief.Title,
		TargetRegion:    brief.TargetRegion,
		TargetAudience:  brief.TargetAudience,
		CampaignMessage: brief.CampaignMessage,
		Products:        brief.Products,
		GeneratedAssets: len(assets),
		CreatedAt:       brief.CreatedAt.Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode brief info: %w", err)
	}

	entry, err := zw.Create(InfoFile)
	if err != nil {
		return err
	}
	if _, err := entry.Write(data); err != nil {
		return err
	}

	return zw.Close()
}

func addFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entry, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
	if err != nil {
		return err
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	return nil
}
