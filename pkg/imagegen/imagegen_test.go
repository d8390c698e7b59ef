package imagegen_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/AndrewDonelson/campaign-studio/pkg/imagegen"
	"github.com/AndrewDonelson/campaign-studio/pkg/imagegen/mocks"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, c), imaging.PNG))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func fakeImageServer(t *testing.T, status int, body interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClientGenerate(t *testing.T) {
	png := solidPNG(t, 8, 8, color.White)
	srv := fakeImageServer(t, http.StatusOK, map[string]interface{}{
		"created": 1,
		"data":    []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
	})

	client := imagegen.NewOpenAIClient(imagegen.ClientConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	data, err := client.Generate(context.Background(), "a can on a beach")
	require.NoError(t, err)
	assert.Equal(t, png, data)
	assert.Len(t, client.GenerateTimings, 1)
	assert.Contains(t, client.GetTimingStats(), "samples: 1 Generate")
}

func TestOpenAIClientGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"billing", "billing_hard_limit_reached", imagegen.ErrBillingLimit},
		{"quota", "insufficient_quota", imagegen.ErrQuotaExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeImageServer(t, http.StatusBadRequest, map[string]interface{}{
				"error": map[string]string{"code": tt.code, "message": "nope", "type": "invalid_request_error"},
			})
			client := imagegen.NewOpenAIClient(imagegen.ClientConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
			_, err := client.Generate(context.Background(), "prompt")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAIClientGenerateEmptyResponse(t *testing.T) {
	srv := fakeImageServer(t, http.StatusOK, map[string]interface{}{"created": 1, "data": []interface{}{}})
	client := imagegen.NewOpenAIClient(imagegen.ClientConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

	_, err := client.Generate(context.Background(), "prompt")
	var genErr *imagegen.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.True(t, strings.HasPrefix(err.Error(), "DALL-E generation failed: "))
}

func TestOpenAIClientEdit(t *testing.T) {
	tile := solidPNG(t, imagegen.TileSize, imagegen.TileSize, color.NRGBA{B: 200, A: 255})

	var (
		path   string
		files  []string
		prompt string
		size   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if !assert.NoError(t, r.ParseMultipartForm(32<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for name, parts := range r.MultipartForm.File {
			files = append(files, name)
			f, err := parts[0].Open()
			if assert.NoError(t, err) {
				_, err = imaging.Decode(f)
				assert.NoError(t, err, "part %s is not an image", name)
				f.Close()
			}
		}
		prompt = r.FormValue("prompt")
		size = r.FormValue("size")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"created": 1,
			"data":    []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(tile)}},
		})
	}))
	t.Cleanup(srv.Close)

	client := imagegen.NewOpenAIClient(imagegen.ClientConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	canvas, mask := imagegen.BuildCanvasAndMask(
		imaging.New(imagegen.TileSize, imagegen.TileSize, color.White), imagegen.Right, imagegen.StepPx)

	out, err := client.Edit(context.Background(), canvas, mask, strings.Repeat("é", 1500))
	require.NoError(t, err)

	assert.Equal(t, "/v1/images/edits", path)
	assert.ElementsMatch(t, []string{"image", "mask"}, files)
	assert.Equal(t, imagegen.MaxPromptLength, utf8.RuneCountInString(prompt))
	assert.True(t, strings.HasSuffix(prompt, "..."))
	assert.Equal(t, "1024x1024", size)
	assert.Equal(t, image.Rect(0, 0, imagegen.TileSize, imagegen.TileSize), out.Bounds())
	assert.Len(t, client.EditTimings, 1)
}

func TestOpenAIClientEditQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/edits", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "insufficient_quota", "message": "nope", "type": "insufficient_quota"},
		})
	}))
	t.Cleanup(srv.Close)

	client := imagegen.NewOpenAIClient(imagegen.ClientConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	canvas, mask := imagegen.BuildCanvasAndMask(
		imaging.New(imagegen.TileSize, imagegen.TileSize, color.White), imagegen.Up, imagegen.StepPx)

	_, err := client.Edit(context.Background(), canvas, mask, "extend the sky")
	assert.ErrorIs(t, err, imagegen.ErrQuotaExceeded)
}

func TestMapAPIError(t *testing.T) {
	assert.NoError(t, imagegen.MapAPIError(nil))
	assert.Equal(t, imagegen.ErrQuotaExceeded, imagegen.MapAPIError(errors.New("429 insufficient_quota")))

	err := imagegen.MapAPIError(errors.New("boom"))
	assert.EqualError(t, err, "DALL-E generation failed: boom")
}

func TestEstimateRemainingTime(t *testing.T) {
	client := imagegen.NewOpenAIClient(imagegen.ClientConfig{APIKey: "test"})
	assert.Equal(t, "No timing data yet", client.GetTimingStats())
	// 20s generate + 4 x 25s edit per product
	assert.Equal(t, 240.0, client.EstimateRemainingTime(2).Seconds())
}

func TestTruncatePrompt(t *testing.T) {
	short := "keep me"
	assert.Equal(t, short, imagegen.TruncatePrompt(short))

	long := strings.Repeat("é", 1200)
	got := imagegen.TruncatePrompt(long)
	assert.Len(t, []rune(got), imagegen.MaxPromptLength)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestMockSquare(t *testing.T) {
	data, err := imagegen.MockSquare()
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1024, 1024), img.Bounds())

	r, g, b, _ := img.At(5, 5).RGBA()
	assert.InDelta(t, 173, r>>8, 4)
	assert.InDelta(t, 216, g>>8, 4)
	assert.InDelta(t, 230, b>>8, 4)
}

func TestBuildCanvasAndMask(t *testing.T) {
	original := imaging.New(imagegen.TileSize, imagegen.TileSize, color.NRGBA{R: 200, A: 255})
	step := imagegen.StepPx

	canvas, mask := imagegen.BuildCanvasAndMask(original, imagegen.Right, step)
	// kept region on the left, empty strip on the right
	assert.Equal(t, uint8(255), canvas.NRGBAAt(10, 10).A)
	assert.Equal(t, uint8(0), canvas.NRGBAAt(imagegen.TileSize-10, 10).A)
	assert.Equal(t, uint8(255), mask.NRGBAAt(10, 10).A)
	assert.Equal(t, uint8(0), mask.NRGBAAt(imagegen.TileSize-step+1, 10).A)

	canvas, mask = imagegen.BuildCanvasAndMask(original, imagegen.Up, step)
	assert.Equal(t, uint8(0), canvas.NRGBAAt(10, 10).A)
	assert.Equal(t, uint8(0), mask.NRGBAAt(10, step-1).A)
	assert.Equal(t, uint8(255), mask.NRGBAAt(10, step).A)
}

func TestStripRect(t *testing.T) {
	assert.Equal(t, image.Rect(640, 0, 1024, 1024), imagegen.StripRect(imagegen.Right, 384))
	assert.Equal(t, image.Rect(0, 0, 384, 1024), imagegen.StripRect(imagegen.Left, 384))
	assert.Equal(t, image.Rect(0, 640, 1024, 1024), imagegen.StripRect(imagegen.Down, 384))
	assert.Equal(t, image.Rect(0, 0, 1024, 384), imagegen.StripRect(imagegen.Up, 384))
}

func TestExtendFallback(t *testing.T) {
	square := solidPNG(t, 1024, 1024, color.NRGBA{G: 120, A: 255})

	wide, err := imagegen.ExtendFallback(square, true)
	require.NoError(t, err)
	w, h := decodeSize(t, wide)
	assert.Equal(t, []int{1792, 1024}, []int{w, h})

	tall, err := imagegen.ExtendFallback(square, false)
	require.NoError(t, err)
	w, h = decodeSize(t, tall)
	assert.Equal(t, []int{1024, 1792}, []int{w, h})

	_, err = imagegen.ExtendFallback([]byte("not an image"), true)
	assert.Error(t, err)
}

func TestOutpainterDevModeSkipsAPI(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	// no EXPECT: any call fails the test

	square := solidPNG(t, 1024, 1024, color.White)
	o := imagegen.NewOutpainter(api, true)

	out, err := o.Landscape(context.Background(), square, "prompt")
	require.NoError(t, err)
	w, h := decodeSize(t, out)
	assert.Equal(t, []int{1792, 1024}, []int{w, h})
}

func TestOutpainterUsesEdits(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().
		Edit(gomock.Any(), gomock.Any(), gomock.Any(), "prompt").
		DoAndReturn(imagegen.MockAPI{}.Edit).
		Times(2)

	square := solidPNG(t, 1024, 1024, color.NRGBA{R: 255, A: 255})
	o := imagegen.NewOutpainter(api, false)

	out, err := o.Vertical(context.Background(), square, "prompt")
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1024, 1792), img.Bounds())

	// painted strips are light blue, the original stays red
	r, _, b, _ := img.At(500, 10).RGBA()
	assert.Equal(t, uint32(173), r>>8)
	assert.Equal(t, uint32(230), b>>8)
	r, g, _, _ := img.At(500, 900).RGBA()
	assert.Equal(t, uint32(255), r>>8)
	assert.Equal(t, uint32(0), g>>8)
}

func TestOutpainterFallsBackOnEditError(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Edit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("edit failed")).
		MinTimes(1).MaxTimes(2)

	square := solidPNG(t, 1024, 1024, color.White)
	out, err := imagegen.NewOutpainter(api, false).Landscape(context.Background(), square, "prompt")
	require.NoError(t, err)
	w, h := decodeSize(t, out)
	assert.Equal(t, []int{1792, 1024}, []int{w, h})
}

func TestNormalizeReference(t *testing.T) {
	data := solidPNG(t, 300, 200, color.NRGBA{B: 255, A: 255})

	ref, err := imagegen.NormalizeReference(bytes.NewReader(data), "logo.png")
	require.NoError(t, err)
	assert.Equal(t, "logo_normalized_1024x1024.jpg", ref.Filename)
	assert.Equal(t, "300x200", ref.Metadata.OriginalDimensions)
	assert.Equal(t, "PNG", ref.Metadata.OriginalFormat)
	assert.Equal(t, int64(len(data)), ref.Metadata.OriginalFileSize)
	assert.Equal(t, "Normalized from 300x200 to 1024x1024 pixels", ref.Metadata.ProcessingNote)

	w, h := decodeSize(t, ref.Data)
	assert.Equal(t, []int{1024, 1024}, []int{w, h})

	_, err = imagegen.NormalizeReference(strings.NewReader("garbage"), "x.png")
	assert.ErrorContains(t, err, "Failed to process reference image")
}
