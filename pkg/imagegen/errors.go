package imagegen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrBillingLimit is returned when the OpenAI account hit its hard spending limit
	ErrBillingLimit = errors.New("OpenAI billing limit reached. Please check your OpenAI account billing at https://platform.openai.com/usage and add credits or increase your spending limit.")

	// ErrQuotaExceeded is returned when the OpenAI account ran out of quota
	ErrQuotaExceeded = errors.New("OpenAI API quota exceeded. Please check your usage limits at https://platform.openai.com/usage")
)

// GenerationError wraps any other image API failure
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("DALL-E generation failed: %s", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// MapAPIError turns an OpenAI client error into one of the user-facing errors
func MapAPIError(err error) error {
	if err == nil {
		return nil
	}

	text := err.Error()
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		text = fmt.Sprintf("%v %s %s", apiErr.Code, apiErr.Type, apiErr.Message)
	}

	switch {
	case strings.Contains(text, "billing_hard_limit_reached"):
		return ErrBillingLimit
	case strings.Contains(text, "insufficient_quota"):
		return ErrQuotaExceeded
	default:
		return &GenerationError{Err: err}
	}
}
