package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/httputil"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Anthropic streams the Messages API. The response schema is embedded in the
// system prompt since the API has no structured output mode.
type Anthropic struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	attempts   int
	httpClient *http.Client
}

// NewAnthropic creates an Anthropic provider. Empty fields take defaults.
func NewAnthropic(cfg Config) *Anthropic {
	a := &Anthropic{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxTokens:  cfg.MaxTokens,
		attempts:   cfg.Attempts,
		httpClient: newHTTPClient(cfg.Timeout),
	}
	if a.model == "" {
		a.model = DefaultAnthropicModel
	}
	if a.baseURL == "" {
		a.baseURL = anthropicBaseURL
	}
	if a.maxTokens <= 0 {
		a.maxTokens = DefaultMaxTokens
	}
	return a
}

func (a *Anthropic) Name() string  { return ProviderAnthropic }
func (a *Anthropic) Model() string { return a.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stream implements [Provider].
func (a *Anthropic) Stream(ctx context.Context, req Request, fn TextFunc) (string, error) {
	system, err := a.systemPrompt(req)
	if err != nil {
		return "", err
	}
	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: firstPositive(req.MaxTokens, a.maxTokens),
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Stream:    true,
	}

	resp, err := openStream(ctx, a.httpClient, a.attempts, func(ctx context.Context) (*http.Request, error) {
		return jsonRequest(ctx, a.baseURL+"/v1/messages", body, map[string]string{
			"x-api-key":         a.apiKey,
			"anthropic-version": anthropicVersion,
		})
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var text strings.Builder
	err = httputil.ReadEvents(resp.Body, func(ev httputil.Event) error {
		var event anthropicEvent
		if err := json.UnmarshalFromString(ev.Data, &event); err != nil {
			return errors.Wrap(errors.ErrCodeModel, err, "decode event")
		}
		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type != "text_delta" || event.Delta.Text == "" {
				return nil
			}
			text.WriteString(event.Delta.Text)
			return fn(text.String())
		case "message_delta":
			if event.Delta.StopReason == "max_tokens" {
				return errors.New(errors.ErrCodeModel, "response truncated at the token limit")
			}
		case "message_stop":
			return errDone
		case "error":
			return anthropicError(event)
		}
		return nil
	})
	if err != nil && err != errDone {
		return text.String(), streamErr(ctx, a.Name(), err)
	}
	return text.String(), nil
}

func (a *Anthropic) systemPrompt(req Request) (string, error) {
	if req.Schema == nil {
		return req.System, nil
	}
	schema, err := json.MarshalToString(req.Schema)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "marshal schema")
	}
	return req.System + "\n\nThe JSON object must match this JSON Schema exactly. Do not wrap it in a code block.\n" + schema, nil
}

func anthropicError(event anthropicEvent) error {
	if event.Error == nil {
		return errors.New(errors.ErrCodeModel, "unknown stream error")
	}
	switch event.Error.Type {
	case "overloaded_error", "api_error":
		return errors.New(errors.ErrCodeModelUnavailable, "%s: %s", event.Error.Type, event.Error.Message)
	case "rate_limit_error":
		return &errors.RateLimitedError{Message: event.Error.Message}
	default:
		return errors.New(errors.ErrCodeModel, "%s: %s", event.Error.Type, event.Error.Message)
	}
}
