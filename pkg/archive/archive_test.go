package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

func TestBuildBriefArchive(t *testing.T) {
	media := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(media, "generated"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(media, "generated", "a.jpg"), []byte("jpeg-a"), 0644))

	fr := &models.Language{ID: 3, Code: "fr"}
	created := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	brief := &models.Brief{
		Title:           "Summer Launch",
		TargetRegion:    "EU",
		TargetAudience:  "18-30",
		CampaignMessage: "Stay fresh",
		Products:        []models.Product{{Name: "Fizz Zero", Type: "soda"}},
		CreatedAt:       created,
	}
	assets := []models.GeneratedAsset{
		{ID: 7, ProductName: "Fizz Zero", AspectRatio: "16:9", Language: fr, ImageFile: "generated/a.jpg"},
		{ID: 8, ProductName: "Fizz Zero", AspectRatio: "1:1", Language: fr, ImageFile: "generated/missing.jpg"},
		{ID: 9, ProductName: "Fizz Zero", AspectRatio: "9:16", Language: fr},
	}

	var buf bytes.Buffer
	require.NoError(t, BuildBriefArchive(&buf, brief, assets, media))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	require.Len(t, names, 2)
	require.Contains(t, names, "fizz-zero/fr/16x9/campaign_7.jpg")
	require.Contains(t, names, InfoFile)
	assert.Equal(t, zip.Deflate, names["fizz-zero/fr/16x9/campaign_7.jpg"].Method)

	rc, err := names[InfoFile].Open()
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"title\": \"Summer Launch\"")

	var info BriefInfo
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.Equal(t, 3, info.GeneratedAssets)
	assert.Equal(t, "2024-05-01T10:30:00Z", info.CreatedAt)
	assert.Equal(t, brief.Products, info.Products)
}

func TestEntryNameNonLatinProduct(t *testing.T) {
	asset := &models.GeneratedAsset{
		ID:          12,
		ProductName: "抹茶ラテ",
		AspectRatio: "1:1",
		Language:    &models.Language{Code: "ja"},
	}
	name := EntryName(asset)
	assert.Equal(t, "product/ja/1x1/campaign_12.jpg", name)
	assert.NotEqual(t, '/', rune(name[0]))
}
