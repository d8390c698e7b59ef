package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/utils"
)

// AssetHandler handles generated asset requests
type AssetHandler struct {
	assets    *database.AssetRepository
	mediaRoot string
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(db *sql.DB, mediaRoot string) *AssetHandler {
	return &AssetHandler{
		assets:    database.NewAssetRepository(db),
		mediaRoot: mediaRoot,
	}
}

// GetByID returns an asset with the other assets of the same product
func (h *AssetHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	asset, err := h.assets.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if asset == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	related, err := h.assets.ListRelated(asset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	relatedViews := make([]AssetView, 0, len(related))
	for i := range related {
		relatedViews = append(relatedViews, newAssetView(&related[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"asset":            asset,
		"display_name":     asset.DisplayName(),
		"organized_folder": asset.OrganizedFolder(),
		"file_size_mb":     asset.FileSizeMB(h.mediaRoot),
		"image_url":        utils.MediaURL(asset.ImageFile),
		"brief_url":        briefURL(asset.BriefID),
		"related_assets":   relatedViews,
	})
}
