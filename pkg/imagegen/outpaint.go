package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StepPx is how far each outpainting pass extends the square
const StepPx = 384

// Direction of an outpainting pass
type Direction string

const (
	Right Direction = "right"
	Left  Direction = "left"
	Down  Direction = "down"
	Up    Direction = "up"
)

var (
	transparent = color.NRGBA{}
	opaqueWhite = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// Outpainter extends square images to landscape and vertical formats
type Outpainter struct {
	api     API
	devMode bool
	step    int
}

// NewOutpainter creates an outpainter. In dev mode the API is never called.
func NewOutpainter(api API, devMode bool) *Outpainter {
	return &Outpainter{api: api, devMode: devMode, step: StepPx}
}

// Landscape extends a 1024x1024 image to 1792x1024
func (o *Outpainter) Landscape(ctx context.Context, square []byte, prompt string) ([]byte, error) {
	return o.extend(ctx, square, prompt, Left, Right)
}

// Vertical extends a 1024x1024 image to 1024x1792
func (o *Outpainter) Vertical(ctx context.Context, square []byte, prompt string) ([]byte, error) {
	return o.extend(ctx, square, prompt, Up, Down)
}

func (o *Outpainter) extend(ctx context.Context, square []byte, prompt string, before, after Direction) ([]byte, error) {
	horizontal := before == Left
	if o.devMode || o.api == nil {
		return ExtendFallback(square, horizontal)
	}

	out, err := o.outpaint(ctx, square, prompt, before, after)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Bool("horizontal", horizontal).Msg("Outpainting failed, using blur extension")
		return ExtendFallback(square, horizontal)
	}
	return out, nil
}

func (o *Outpainter) outpaint(ctx context.Context, square []byte, prompt string, before, after Direction) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(square))
	if err != nil {
		return nil, fmt.Errorf("decode square: %w", err)
	}
	if b := src.Bounds(); b.Dx() != TileSize || b.Dy() != TileSize {
		return nil, fmt.Errorf("expected %dx%d image, got %dx%d", TileSize, TileSize, b.Dx(), b.Dy())
	}
	original := imaging.Clone(src)

	var first, second image.Image
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		strip, err := o.extendDirection(egCtx, original, before, prompt)
		first = strip
		return err
	})
	eg.Go(func() error {
		strip, err := o.extendDirection(egCtx, original, after, prompt)
		second = strip
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	full := TileSize + 2*o.step
	var final *image.NRGBA
	if before == Left {
		final = imaging.New(full, TileSize, opaqueWhite)
		final = imaging.Paste(final, first, image.Pt(0, 0))
		final = imaging.Paste(final, original, image.Pt(o.step, 0))
		final = imaging.Paste(final, second, image.Pt(o.step+TileSize, 0))
	} else {
		final = imaging.New(TileSize, full, opaqueWhite)
		final = imaging.Paste(final, first, image.Pt(0, 0))
		final = imaging.Paste(final, original, image.Pt(0, o.step))
		final = imaging.Paste(final, second, image.Pt(0, o.step+TileSize))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, final, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// extendDirection slides the image and an opaque mask by step pixels on a
// transparent tile, lets the model paint the gap and returns the painted strip
func (o *Outpainter) extendDirection(ctx context.Context, original *image.NRGBA, dir Direction, prompt string) (image.Image, error) {
	canvas, mask := BuildCanvasAndMask(original, dir, o.step)

	tile, err := o.api.Edit(ctx, canvas, mask, prompt)
	if err != nil {
		return nil, err
	}
	if b := tile.Bounds(); b.Dx() != TileSize || b.Dy() != TileSize {
		tile = imaging.Resize(tile, TileSize, TileSize, imaging.Lanczos)
	}

	return imaging.Crop(tile, StripRect(dir, o.step)), nil
}

// BuildCanvasAndMask returns the edit canvas and mask for one direction.
// Opaque mask pixels are kept, transparent ones are painted.
func BuildCanvasAndMask(original image.Image, dir Direction, step int) (*image.NRGBA, *image.NRGBA) {
	var offset image.Point
	switch dir {
	case Right:
		offset = image.Pt(-step, 0)
	case Left:
		offset = image.Pt(step, 0)
	case Down:
		offset = image.Pt(0, -step)
	case Up:
		offset = image.Pt(0, step)
	}

	keep := imaging.New(TileSize, TileSize, opaqueWhite)
	canvas := imaging.Paste(imaging.New(TileSize, TileSize, transparent), original, offset)
	mask := imaging.Paste(imaging.New(TileSize, TileSize, transparent), keep, offset)
	return canvas, mask
}

// StripRect is the area of an edited tile holding the newly painted strip
func StripRect(dir Direction, step int) image.Rectangle {
	switch dir {
	case Right:
		return image.Rect(TileSize-step, 0, TileSize, TileSize)
	case Left:
		return image.Rect(0, 0, step, TileSize)
	case Down:
		return image.Rect(0, TileSize-step, TileSize, TileSize)
	default:
		return image.Rect(0, 0, TileSize, step)
	}
}

// ExtendFallback widens (horizontal) or heightens a square image without the
// image API. The square is centered on a white canvas and each margin is
// filled with the adjacent edge quarter, blurred and stretched.
func ExtendFallback(square []byte, horizontal bool) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(square))
	if err != nil {
		return nil, fmt.Errorf("decode square: %w", err)
	}

	size := src.Bounds().Dx()
	if h := src.Bounds().Dy(); h != size {
		if h < size {
			size = h
		}
		src = imaging.Fill(src, size, size, imaging.Center, imaging.Lanczos)
	}

	margin := size * 3 / 8
	full := size + 2*margin
	quarter := size / 4

	var canvas *image.NRGBA
	if horizontal {
		canvas = imaging.New(full, size, opaqueWhite)
		left := imaging.Blur(imaging.Crop(src, image.Rect(0, 0, quarter, size)), 2)
		right := imaging.Blur(imaging.Crop(src, image.Rect(size-quarter, 0, size, size)), 2)
		canvas = imaging.Paste(canvas, imaging.Resize(left, margin, size, imaging.Lanczos), image.Pt(0, 0))
		canvas = imaging.Paste(canvas, imaging.Resize(right, margin, size, imaging.Lanczos), image.Pt(margin+size, 0))
		canvas = imaging.Paste(canvas, src, image.Pt(margin, 0))
	} else {
		canvas = imaging.New(size, full, opaqueWhite)
		top := imaging.Blur(imaging.Crop(src, image.Rect(0, 0, size, quarter)), 2)
		bottom := imaging.Blur(imaging.Crop(src, image.Rect(0, size-quarter, size, size)), 2)
		canvas = imaging.Paste(canvas, imaging.Resize(top, size, margin, imaging.Lanczos), image.Pt(0, 0))
		canvas = imaging.Paste(canvas, imaging.Resize(bottom, size, margin, imaging.Lanczos), image.Pt(0, margin+size))
		canvas = imaging.Paste(canvas, src, image.Pt(0, margin))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode extension: %w", err)
	}
	return buf.Bytes(), nil
}
