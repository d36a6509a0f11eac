package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"release-analyzer/internal/llm"
)

const providerName = "openai"

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient constructs a new OpenAI client. Retries are disabled so a
// failing credential is reported after a single call.
func NewClient(opts llm.Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("openai: %w", llm.ErrMissingAPIKey)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: opts.TimeoutOrDefault()}),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	client := openai.NewClient(reqOpts...)
	return &Client{client: &client, model: strings.TrimSpace(opts.Model)}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (llm.Generation, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return llm.Generation{}, llm.NewStatusError(providerName, apiErr.StatusCode, err.Error(), err)
		}
		return llm.Generation{}, llm.NewTransportError(providerName, err)
	}
	if len(resp.Choices) == 0 {
		return llm.Generation{}, llm.NewInvalidResponse(providerName, "response missing choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return llm.Generation{}, llm.NewInvalidResponse(providerName, "response empty content")
	}

	gen := llm.Generation{
		Text:             text,
		Model:            c.model,
		Provider:         providerName,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}
	if resp.Model != "" {
		gen.Model = resp.Model
	}
	return gen, nil
}

var _ llm.Client = (*Client)(nil)
