package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ReferenceMetadata describes how an uploaded reference image was processed
type ReferenceMetadata struct {
	OriginalDimensions   string `json:"original_dimensions"`
	NormalizedDimensions string `json:"normalized_dimensions"`
	OriginalFormat       string `json:"original_format"`
	NormalizedFormat     string `json:"normalized_format"`
	OriginalFileSize     int64  `json:"original_file_size"`
	ProcessingNote       string `json:"processing_note"`
}

// NormalizedReference is a reference image filled and cropped to 1024x1024
type NormalizedReference struct {
	Data     []byte
	Filename string
	Metadata ReferenceMetadata
}

// NormalizeReference scales r to fill 1024x1024, crops the center and encodes
// it as a high quality JPEG
func NormalizeReference(r io.Reader, originalName string) (*NormalizedReference, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Failed to process reference image: %s", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("Failed to process reference image: %s", err)
	}

	normalized := imaging.Fill(img, TileSize, TileSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, normalized, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, fmt.Errorf("Failed to process reference image: %s", err)
	}

	if originalName == "" {
		originalName = "reference_image.jpg"
	}
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))

	return &NormalizedReference{
		Data:     buf.Bytes(),
		Filename: base + "_normalized_1024x1024.jpg",
		Metadata: ReadReferenceMetadata(data),
	}, nil
}

// ReadReferenceMetadata inspects the original upload. Undecodable data gets
// the generic note.
func ReadReferenceMetadata(data []byte) ReferenceMetadata {
	meta := ReferenceMetadata{
		OriginalDimensions:   "Unknown",
		NormalizedDimensions: "1024x1024",
		OriginalFormat:       "Unknown",
		NormalizedFormat:     "JPEG",
		ProcessingNote:       "Normalized to 1024x1024 pixels",
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return meta
	}

	meta.OriginalDimensions = fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
	meta.OriginalFormat = strings.ToUpper(format)
	meta.OriginalFileSize = int64(len(data))
	meta.ProcessingNote = fmt.Sprintf("Normalized from %dx%d to 1024x1024 pixels", cfg.Width, cfg.Height)
	return meta
}
