package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	LightBlue = color.NRGBA{R: 173, G: 216, B: 230, A: 255}
	DarkBlue  = color.NRGBA{R: 0, G: 0, B: 139, A: 255}
)

// MockLabel is drawn on dev mode images
const MockLabel = "MOCK IMAGE\n(Dev Mode)"

// MockImage renders a flat JPEG with label centered on it
func MockImage(width, height int, bg, fg color.Color, label string) ([]byte, error) {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()

	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face := truetype.NewFace(font, &truetype.Options{Size: 48})
	defer face.Close()
	dc.SetFontFace(face)
	dc.SetColor(fg)

	lines := strings.Split(label, "\n")
	lineHeight := dc.FontHeight() * 1.4
	top := float64(height)/2 - lineHeight*float64(len(lines)-1)/2
	for i, line := range lines {
		dc.DrawStringAnchored(line, float64(width)/2, top+float64(i)*lineHeight, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dc.Image(), imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode mock image: %w", err)
	}
	return buf.Bytes(), nil
}

// MockSquare is the 1024x1024 dev mode stand-in for a generated image
func MockSquare() ([]byte, error) {
	return MockImage(TileSize, TileSize, LightBlue, DarkBlue, MockLabel)
}

// MockAPI serves mock images instead of calling the image service
type MockAPI struct{}

// Generate returns the dev mode square
func (MockAPI) Generate(ctx context.Context, prompt string) ([]byte, error) {
	return MockSquare()
}

// Edit returns the canvas with its transparent area filled light blue
func (MockAPI) Edit(ctx context.Context, canvas, mask image.Image, prompt string) (image.Image, error) {
	b := canvas.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), LightBlue)
	return imaging.Overlay(bg, canvas, image.Pt(0, 0), 1.0), nil
}
