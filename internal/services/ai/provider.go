// Package ai holds the text model integrations: campaign message translation
// through OpenAI chat completions, with a mock provider for development.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/time/rate"
)

// DefaultTranslationModel is used when no model is configured
const DefaultTranslationModel = openai.GPT3Dot5Turbo

// Provider translates text between two language codes
type Provider interface {
	Name() string
	Available() bool
	Translate(ctx context.Context, text, target, source string) (string, error)
}

// OpenAIConfig configures the chat based translation provider
type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
	Timeout           time.Duration
}

// OpenAIProvider translates with a chat completion model
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewOpenAIProvider creates the provider. Without an API key it reports
// itself unavailable.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	p := &OpenAIProvider{
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
	if p.model == "" {
		p.model = DefaultTranslationModel
	}
	if p.timeout <= 0 {
		p.timeout = 60 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)

	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		p.client = openai.NewClientWithConfig(clientConfig)
	}
	return p
}

func (p *OpenAIProvider) Name() string { return "OpenAI" }

func (p *OpenAIProvider) Available() bool { return p.client != nil }

// Translate asks the model for a tone-preserving translation of text
func (p *OpenAIProvider) Translate(ctx context.Context, text, target, source string) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("OpenAI client not available")
	}
	if target == source {
		return text, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(text, target, source)},
		},
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		log.Error().Err(err).Str("target", target).Msg("OpenAI translation failed")
		return "", fmt.Errorf("Translation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("Translation failed: empty response from API")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(text, target, source string) string {
	return fmt.Sprintf("Translate the following %s text to %s. Maintain the tone and marketing intent. Return only the translation:\n\n%s",
		LanguageName(source), LanguageName(target), text)
}

// LanguageName returns the English name of a language code, or the code
// itself when it is unknown
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// MockProvider prefixes text with the target code, e.g. "[ES] Hello"
type MockProvider struct{}

func (MockProvider) Name() string { return "Mock" }

func (MockProvider) Available() bool { return true }

func (MockProvider) Translate(ctx context.Context, text, target, source string) (string, error) {
	if target == source {
		return text, nil
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(target), text), nil
}
