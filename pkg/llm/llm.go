package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/scribetree/pkg/errors"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Request is one structured generation.
type Request struct {
	System     string
	Prompt     string
	SchemaName string
	Schema     map[string]any
	MaxTokens  int
}

// TextFunc receives the full response text accumulated so far. Returning an
// error aborts the stream.
type TextFunc func(text string) error

// Provider streams a model response.
type Provider interface {
	// Name is the provider name, e.g. "openai".
	Name() string
	// Model is the model identifier sent upstream.
	Model() string
	// Stream runs req and calls fn whenever new text arrives. It returns the
	// complete text once the model finishes.
	Stream(ctx context.Context, req Request, fn TextFunc) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
	Attempts  int
}

// Default models.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultMaxTokens      = 8192
)

// New returns the provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "no API key configured for provider %q", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAI(cfg), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown provider %q (want openai or anthropic)", cfg.Provider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &http.Client{Timeout: timeout}
}
