package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ErrNoProviders is returned when no configured provider is available
var ErrNoProviders = errors.New("No translation providers available")

// sharedTranslateTimeout bounds a translation shared by concurrent callers.
// It runs detached from any single caller's context.
const sharedTranslateTimeout = 2 * time.Minute

// TranslationService tries each available provider in order until one
// succeeds. Results are cached per (source, target, text).
type TranslationService struct {
	providers []Provider
	cache     *cache.Cache
	group     singleflight.Group
}

// NewTranslationService keeps only the available providers
func NewTranslationService(providers ...Provider) *TranslationService {
	s := &TranslationService{
		cache: cache.New(24*time.Hour, time.Hour),
	}
	for _, p := range providers {
		if p != nil && p.Available() {
			s.providers = append(s.providers, p)
		}
	}
	if len(s.providers) == 0 {
		log.Warn().Msg("No translation providers available")
	}
	return s
}

// Translate returns text in the target language
func (s *TranslationService) Translate(ctx context.Context, text, target, source string) (string, error) {
	if len(s.providers) == 0 {
		return "", ErrNoProviders
	}
	if target == source {
		return text, nil
	}

	key := source + "|" + target + "|" + text
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), nil
	}

	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(shared, sharedTranslateTimeout)
		defer cancel()

		var lastErr error
		for _, p := range s.providers {
			result, err := p.Translate(ctx, text, target, source)
			if err != nil {
				log.Warn().Err(err).Str("provider", p.Name()).Msg("Translation failed")
				lastErr = err
				continue
			}
			log.Info().Str("provider", p.Name()).Str("target", target).Msg("Translation successful")
			s.cache.SetDefault(key, result)
			return result, nil
		}
		return nil, fmt.Errorf("All translation providers failed. Last error: %v", lastErr)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// TranslateCampaignContent translates every field, keeping the original
// text of fields that fail
func (s *TranslationService) TranslateCampaignContent(ctx context.Context, content map[string]string, target, source string) map[string]string {
	translated := make(map[string]string, len(content))
	for field, text := range content {
		result, err := s.Translate(ctx, text, target, source)
		if err != nil {
			log.Error().Err(err).Str("field", field).Msg("Failed to translate field")
			result = text
		}
		translated[field] = result
	}
	return translated
}

// AvailableProviders lists the provider names in fallback order
func (s *TranslationService) AvailableProviders() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}
