package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name      string
	available bool
	result    string
	err       error
	calls     atomic.Int32
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return s.available }
func (s *stubProvider) Translate(ctx context.Context, text, target, source string) (string, error) {
	s.calls.Add(1)
	return s.result, s.err
}

func TestMockProvider(t *testing.T) {
	p := MockProvider{}
	got, err := p.Translate(context.Background(), "Hello", "es", "en")
	require.NoError(t, err)
	assert.Equal(t, "[ES] Hello", got)

	got, err = p.Translate(context.Background(), "Hello", "en", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "English", LanguageName("en"))
	assert.Equal(t, "Spanish", LanguageName("es"))
	assert.Equal(t, "Japanese", LanguageName("ja"))
	assert.Equal(t, "not-a-code!", LanguageName("not-a-code!"))
}

func TestOpenAIProviderUnavailableWithoutKey(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})
	assert.False(t, p.Available())

	_, err := p.Translate(context.Background(), "Hi", "fr", "en")
	assert.Error(t, err)
}

func TestOpenAIProviderTranslate(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": "  Hola mundo \n"}}},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	require.True(t, p.Available())

	result, err := p.Translate(context.Background(), "Hello world", "es", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", result)

	assert.Equal(t, DefaultTranslationModel, got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.3, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Translate the following English text to Spanish. Maintain the tone and marketing intent. Return only the translation:\n\nHello world", got.Messages[0].Content)
}

func TestOpenAIProviderWrapsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"server melted","type":"server_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	_, err := p.Translate(context.Background(), "Hello", "de", "en")
	assert.ErrorContains(t, err, "Translation failed: ")
}

func TestTranslationService(t *testing.T) {
	t.Run("no providers", func(t *testing.T) {
		s := NewTranslationService(&stubProvider{name: "off"})
		assert.Empty(t, s.AvailableProviders())
		_, err := s.Translate(context.Background(), "Hi", "fr", "en")
		assert.ErrorIs(t, err, ErrNoProviders)
	})

	t.Run("falls through to next provider", func(t *testing.T) {
		broken := &stubProvider{name: "broken", available: true, err: errors.New("down")}
		s := NewTranslationService(broken, MockProvider{})
		assert.Equal(t, []string{"broken", "Mock"}, s.AvailableProviders())

		got, err := s.Translate(context.Background(), "Hi", "fr", "en")
		require.NoError(t, err)
		assert.Equal(t, "[FR] Hi", got)
	})

	t.Run("all fail", func(t *testing.T) {
		s := NewTranslationService(&stubProvider{name: "a", available: true, err: errors.New("boom")})
		_, err := s.Translate(context.Background(), "Hi", "fr", "en")
		assert.EqualError(t, err, "All translation providers failed. Last error: boom")
	})

	t.Run("same language skips providers", func(t *testing.T) {
		stub := &stubProvider{name: "a", available: true, result: "x"}
		s := NewTranslationService(stub)
		got, err := s.Translate(context.Background(), "Hi", "en", "en")
		require.NoError(t, err)
		assert.Equal(t, "Hi", got)
		assert.Zero(t, stub.calls.Load())
	})

	t.Run("caches results", func(t *testing.T) {
		stub := &stubProvider{name: "a", available: true, result: "Salut"}
		s := NewTranslationService(stub)
		for i := 0; i < 3; i++ {
			got, err := s.Translate(context.Background(), "Hi", "fr", "en")
			require.NoError(t, err)
			assert.Equal(t, "Salut", got)
		}
		assert.Equal(t, int32(1), stub.calls.Load())
	})
}

func TestTranslateCampaignContent(t *testing.T) {
	s := NewTranslationService(MockProvider{})
	got := s.TranslateCampaignContent(context.Background(), map[string]string{
		"campaign_message": "Stay fresh",
		"title":            "Launch",
	}, "de", "en")
	assert.Equal(t, map[string]string{"campaign_message": "[DE] Stay fresh", "title": "[DE] Launch"}, got)

	failing := NewTranslationService(&stubProvider{name: "a", available: true, err: errors.New("no")})
	got = failing.TranslateCampaignContent(context.Background(), map[string]string{"title": "Launch"}, "de", "en")
	assert.Equal(t, "Launch", got["title"])
}

type blockingProvider struct {
	started  chan struct{}
	release  chan struct{}
	finished chan error
	calls    atomic.Int32
}

func (b *blockingProvider) Name() string    { return "blocking" }
func (b *blockingProvider) Available() bool { return true }
func (b *blockingProvider) Translate(ctx context.Context, text, target, source string) (string, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
		b.finished <- nil
		return "[" + target + "] " + text, nil
	case <-ctx.Done():
		b.finished <- ctx.Err()
		return "", ctx.Err()
	}
}

func TestTranslateSharedCallSurvivesFirstCallerCancel(t *testing.T) {
	p := &blockingProvider{started: make(chan struct{}), release: make(chan struct{}), finished: make(chan error, 4)}
	s := NewTranslationService(p)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Translate(firstCtx, "Hello", "fr", "en")
		firstErr <- err
	}()
	<-p.started

	type result struct {
		text string
		err  error
	}
	second := make(chan result, 1)
	go func() {
		text, err := s.Translate(context.Background(), "Hello", "fr", "en")
		second <- result{text, err}
	}()

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(p.release)
	require.NoError(t, <-p.finished, "shared call must not inherit the first caller's cancellation")

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "[fr] Hello", got.text)

	cached, err := s.Translate(context.Background(), "Hello", "fr", "en")
	require.NoError(t, err)
	assert.Equal(t, "[fr] Hello", cached)
}
