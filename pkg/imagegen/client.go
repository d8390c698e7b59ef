// Package imagegen talks to the image generation API and holds the image
// operations around it: mock images, outpainting and reference normalization.
package imagegen

//go:generate mockgen -destination=mocks/mock_api.go -package=mocks github.com/AndrewDonelson/campaign-studio/pkg/imagegen API

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	DefaultModel             = openai.CreateImageModelDallE3
	DefaultRequestsPerMinute = 5
	MaxPromptLength          = 1000
	TileSize                 = 1024
)

// API is the image generation backend
type API interface {
	// Generate returns the encoded bytes of a new 1024x1024 image
	Generate(ctx context.Context, prompt string) ([]byte, error)
	// Edit paints the transparent area of canvas where mask is transparent
	Edit(ctx context.Context, canvas, mask image.Image, prompt string) (image.Image, error)
}

// ClientConfig configures the OpenAI image client
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
	Timeout           time.Duration
}

// OpenAIClient generates and edits images with DALL-E
type OpenAIClient struct {
	client  *openai.Client
	Model   string
	Timeout time.Duration
	limiter *rate.Limiter

	// Timing statistics for ETAs
	mu               sync.Mutex
	GenerateTimings  []time.Duration
	EditTimings      []time.Duration
	MaxTimingSamples int
}

// NewOpenAIClient creates a client; zero values in cfg get defaults
func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	return &OpenAIClient{
		client:           openai.NewClientWithConfig(clientConfig),
		Model:            model,
		Timeout:          timeout,
		limiter:          rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		GenerateTimings:  make([]time.Duration, 0),
		EditTimings:      make([]time.Duration, 0),
		MaxTimingSamples: 10, // Keep last 10 samples for rolling average
	}
}

// Generate creates a square image from prompt and returns the PNG bytes
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()
	defer func() { c.record(&c.GenerateTimings, time.Since(startTime)) }()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Model:          c.Model,
		Prompt:         prompt,
		Size:           openai.CreateImageSize1024x1024,
		Quality:        openai.CreateImageQualityStandard,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, MapAPIError(err)
	}

	return decodeB64Image(resp)
}

// Edit sends canvas and mask as PNG files to the image edit endpoint
func (c *OpenAIClient) Edit(ctx context.Context, canvas, mask image.Image, prompt string) (image.Image, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()
	defer func() { c.record(&c.EditTimings, time.Since(startTime)) }()

	canvasFile, cleanCanvas, err := writeTempPNG("canvas-*.png", canvas)
	if err != nil {
		return nil, err
	}
	defer cleanCanvas()

	maskFile, cleanMask, err := writeTempPNG("mask-*.png", mask)
	if err != nil {
		return nil, err
	}
	defer cleanMask()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := c.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          canvasFile,
		Mask:           maskFile,
		Prompt:         TruncatePrompt(prompt),
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, MapAPIError(err)
	}

	data, err := decodeB64Image(resp)
	if err != nil {
		return nil, err
	}

	tile, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode edited image: %w", err)
	}
	return tile, nil
}

func decodeB64Image(resp openai.ImageResponse) ([]byte, error) {
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, &GenerationError{Err: fmt.Errorf("no image data returned from API")}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("failed to decode base64 image: %w", err)}
	}
	return data, nil
}

// writeTempPNG encodes img to a temp file; the returned file is rewound
func writeTempPNG(pattern string, img image.Image) (*os.File, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}

	if err := png.Encode(f, img); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to encode png: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		cleanup()
		return nil, nil, err
	}
	return f, cleanup, nil
}

// TruncatePrompt keeps prompts within the edit endpoint's length limit
func TruncatePrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= MaxPromptLength {
		return prompt
	}
	return string(runes[:MaxPromptLength-3]) + "..."
}

func (c *OpenAIClient) record(samples *[]time.Duration, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*samples = append(*samples, d)
	if len(*samples) > c.MaxTimingSamples {
		*samples = (*samples)[1:]
	}
	log.Debug().Dur("duration", d).Msg("Image API call finished")
}

func average(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, t := range samples {
		total += t
	}
	return total / time.Duration(len(samples))
}

// GetAverageGenerateTime returns the average time for image generation
func (c *OpenAIClient) GetAverageGenerateTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return average(c.GenerateTimings)
}

// GetAverageEditTime returns the average time for an outpainting edit
func (c *OpenAIClient) GetAverageEditTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return average(c.EditTimings)
}

// EstimateRemainingTime estimates time for remaining images based on averages.
// Every outpainted product costs one generation plus four edits.
func (c *OpenAIClient) EstimateRemainingTime(remainingProducts int) time.Duration {
	avgGenerate := c.GetAverageGenerateTime()
	avgEdit := c.GetAverageEditTime()

	// If no data yet, use reasonable defaults: 20s generate + 25s edit
	if avgGenerate == 0 {
		avgGenerate = 20 * time.Second
	}
	if avgEdit == 0 {
		avgEdit = 25 * time.Second
	}

	perProduct := avgGenerate + 4*avgEdit
	return perProduct * time.Duration(remainingProducts)
}

// GetTimingStats returns timing statistics as a formatted string
func (c *OpenAIClient) GetTimingStats() string {
	avgGenerate := c.GetAverageGenerateTime()
	avgEdit := c.GetAverageEditTime()

	if avgGenerate == 0 && avgEdit == 0 {
		return "No timing data yet"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("Avg Generate: %.1fs, Avg Edit: %.1fs (samples: %d Generate, %d Edit)",
		avgGenerate.Seconds(), avgEdit.Seconds(), len(c.GenerateTimings), len(c.EditTimings))
}
