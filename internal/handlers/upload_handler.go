package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/campaign-studio/internal/briefs"
)

// MaxBriefFileSize bounds uploaded brief files
const MaxBriefFileSize = 1 << 20

// UploadHandler creates briefs from uploaded JSON or YAML files
type UploadHandler struct {
	store *briefs.Store
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(store *briefs.Store) *UploadHandler {
	return &UploadHandler{store: store}
}

// UploadBrief handles a multipart brief_file upload with an optional
// reference_image
func (h *UploadHandler) UploadBrief(c *gin.Context) {
	header, err := c.FormFile("brief_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid brief file",
			"messages": []string{"brief_file: This field is required."},
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open brief file: " + err.Error()})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, MaxBriefFileSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read brief file: " + err.Error()})
		return
	}
	if len(content) > MaxBriefFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid brief file",
			"messages": []string{fmt.Sprintf("brief_file: File is larger than %d bytes", MaxBriefFileSize)},
		})
		return
	}

	ref, closeRef, err := formReference(c, "reference_image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read reference image: " + err.Error()})
		return
	}
	defer closeRef()

	brief, err := h.store.Import(header.Filename, content, ref)
	if err != nil {
		var verr *briefs.ValidationError
		if errors.As(err, &verr) {
			field := verr.Field
			if field == "" {
				field = "brief_file"
			}
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Invalid brief file",
				"messages": []string{field + ": " + verr.Message},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    fmt.Sprintf("Campaign brief %q uploaded successfully!", brief.Title),
		"brief":      brief,
		"detail_url": briefURL(brief.ID),
	})
}
