// Package llm appraises gem-bearing journal entries with a language model.
// It supports OpenAI and OpenAI-compatible endpoints (such as ollama), a
// fallback that produces the fixed "unknown crystal" card, and a mock for
// tests.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/geomood/internal/models"
)

// ErrUnavailable is returned by appraisers that cannot reach a model.
var ErrUnavailable = errors.New("appraiser unavailable")

// ClientConfig configures an appraiser.
type ClientConfig struct {
	// Provider identifies the backend: "openai", "ollama", or "" for the fallback.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider (not used for ollama).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API endpoint URL. Used for ollama or custom OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier to use for requests.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout bounds each request. Waits between retries are not included.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxRetries is how many attempts are made on rate-limit and server errors.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider:   "",
		Timeout:    60 * time.Second,
		MaxRetries: 3,
	}
}

// Appraiser generates the archive card for a gem.
type Appraiser interface {
	// AppraiseGem returns the card for entry. Implementations return an
	// error rather than a placeholder card when the model cannot answer.
	AppraiseGem(ctx context.Context, entry *models.Entry) (*models.GemWisdom, error)

	// Available returns true if the appraiser is configured and ready to handle requests.
	Available() bool
}
