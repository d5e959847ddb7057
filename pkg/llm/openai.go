package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/httputil"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAI streams Chat Completions with a strict JSON Schema response format.
type OpenAI struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	attempts   int
	httpClient *http.Client
}

// NewOpenAI creates an OpenAI provider. Empty fields take defaults.
func NewOpenAI(cfg Config) *OpenAI {
	o := &OpenAI{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxTokens:  cfg.MaxTokens,
		attempts:   cfg.Attempts,
		httpClient: newHTTPClient(cfg.Timeout),
	}
	if o.model == "" {
		o.model = DefaultOpenAIModel
	}
	if o.baseURL == "" {
		o.baseURL = openAIBaseURL
	}
	if o.maxTokens <= 0 {
		o.maxTokens = DefaultMaxTokens
	}
	return o
}

func (o *OpenAI) Name() string  { return ProviderOpenAI }
func (o *OpenAI) Model() string { return o.model }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Stream         bool                  `json:"stream"`
	MaxTokens      int                   `json:"max_completion_tokens,omitempty"`
	Messages       []openAIMessage       `json:"messages"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stream implements [Provider].
func (o *OpenAI) Stream(ctx context.Context, req Request, fn TextFunc) (string, error) {
	body := openAIRequest{
		Model:     o.model,
		Stream:    true,
		MaxTokens: firstPositive(req.MaxTokens, o.maxTokens),
		Messages: []openAIMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
	}
	if req.Schema != nil {
		body.ResponseFormat = &openAIResponseFormat{
			Type:       "json_schema",
			JSONSchema: &openAIJSONSchema{Name: req.SchemaName, Strict: true, Schema: req.Schema},
		}
	}

	resp, err := openStream(ctx, o.httpClient, o.attempts, func(ctx context.Context) (*http.Request, error) {
		return jsonRequest(ctx, o.baseURL+"/chat/completions", body, map[string]string{
			"Authorization": "Bearer " + o.apiKey,
		})
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var text strings.Builder
	err = httputil.ReadEvents(resp.Body, func(ev httputil.Event) error {
		if ev.Data == "[DONE]" {
			return errDone
		}
		var chunk openAIChunk
		if err := json.UnmarshalFromString(ev.Data, &chunk); err != nil {
			return errors.Wrap(errors.ErrCodeModel, err, "decode chunk")
		}
		if chunk.Error != nil {
			return errors.New(errors.ErrCodeModel, "%s: %s", chunk.Error.Type, chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			return nil
		}
		choice := chunk.Choices[0]
		if choice.FinishReason == "length" {
			return errors.New(errors.ErrCodeModel, "response truncated at the token limit")
		}
		if choice.Delta.Content == "" {
			return nil
		}
		text.WriteString(choice.Delta.Content)
		return fn(text.String())
	})
	if err != nil && err != errDone {
		return text.String(), streamErr(ctx, o.Name(), err)
	}
	return text.String(), nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
