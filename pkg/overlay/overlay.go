// Package overlay renders the campaign message banner on top of generated
// product images.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Config defines where the message box is placed and how the text is sized
type Config struct {
	X        int `json:"x"`         // Left edge of the text block
	Y        int `json:"y"`         // Top edge of the text block
	Width    int `json:"width"`     // Wrap width
	Height   int `json:"height"`    // Text block height
	FontSize int `json:"font_size"` // Points

	PaddingX    int         `json:"padding_x"`
	PaddingY    int         `json:"padding_y"`
	BoxColor    color.NRGBA `json:"-"`
	TextColor   color.NRGBA `json:"-"`
	LineSpacing float64     `json:"line_spacing"` // Extra pixels between lines
}

// DefaultConfig returns the overlay placement for an aspect ratio on an image
// of the given size. Unknown ratios use the square layout.
func DefaultConfig(ratio string, width, height int) *Config {
	cfg := &Config{
		PaddingX:    20,
		PaddingY:    15,
		BoxColor:    color.NRGBA{R: 0, G: 0, B: 0, A: 180},
		TextColor:   color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		LineSpacing: 4,
	}

	switch ratio {
	case "9:16":
		cfg.X = width / 20
		cfg.Y = height - 150
		cfg.Width = width - width/10
		cfg.Height = 100
		cfg.FontSize = 24
	case "16:9":
		cfg.X = width / 8
		cfg.Y = height - 100
		cfg.Width = width - width/4
		cfg.Height = 70
		cfg.FontSize = 32
	default:
		cfg.X = width / 10
		cfg.Y = height - 120
		cfg.Width = width - width/5
		cfg.Height = 80
		cfg.FontSize = 28
	}

	return cfg
}

// Box returns the background rectangle including padding
func (c *Config) Box() image.Rectangle {
	return image.Rect(c.X-c.PaddingX, c.Y-c.PaddingY, c.X+c.Width+c.PaddingX, c.Y+c.Height+c.PaddingY)
}

// GetDescription returns a human-readable description of the overlay settings
func (c *Config) GetDescription() string {
	return fmt.Sprintf("Message box at (%d,%d) %dx%d, font %dpt", c.X, c.Y, c.Width, c.Height, c.FontSize)
}

// TargetSize returns the output dimensions for an aspect ratio
func TargetSize(ratio string) (int, int) {
	switch ratio {
	case "9:16":
		return 576, 1024
	case "16:9":
		return 1024, 576
	default:
		return 1024, 1024
	}
}

var (
	fontOnce sync.Once
	baseFont *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		baseFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return baseFont, fontErr
}

// Apply resizes img to the ratio's target size and draws the message box
func Apply(img image.Image, message, ratio string) (image.Image, error) {
	w, h := TargetSize(ratio)
	resized := imaging.Resize(img, w, h, imaging.Lanczos)
	return Draw(resized, message, DefaultConfig(ratio, w, h))
}

// Draw renders message inside cfg's box on top of img, keeping its size
func Draw(img image.Image, message string, cfg *Config) (image.Image, error) {
	font, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	dc := gg.NewContextForImage(img)

	box := cfg.Box()
	dc.SetColor(cfg.BoxColor)
	dc.DrawRectangle(float64(box.Min.X), float64(box.Min.Y), float64(box.Dx()), float64(box.Dy()))
	dc.Fill()

	face := truetype.NewFace(font, &truetype.Options{Size: float64(cfg.FontSize)})
	defer face.Close()
	dc.SetFontFace(face)
	dc.SetColor(cfg.TextColor)

	measure := func(s string) float64 {
		width, _ := dc.MeasureString(s)
		return width
	}
	lines := WrapText(message, float64(cfg.Width), measure)

	centerX := float64(cfg.X) + float64(cfg.Width)/2
	lineHeight := dc.FontHeight() + cfg.LineSpacing
	for i, line := range lines {
		y := float64(cfg.Y) + float64(i)*lineHeight
		dc.DrawStringAnchored(line, centerX, y, 0.5, 1)
	}

	return imaging.Clone(dc.Image()), nil
}

// WrapText greedily packs words into lines no wider than maxWidth. A word
// wider than maxWidth on its own gets a line of its own.
func WrapText(text string, maxWidth float64, measure func(string) float64) []string {
	var lines []string
	var current []string

	for _, word := range strings.Fields(text) {
		candidate := strings.Join(append(current, word), " ")
		if measure(candidate) <= maxWidth {
			current = append(current, word)
			continue
		}
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
			current = []string{word}
		} else {
			lines = append(lines, word)
		}
	}

	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}
