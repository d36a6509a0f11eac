package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"release-analyzer/internal/llm"
)

const (
	providerName = "anthropic"
	maxTokens    = 8192
)

// Client implements llm.Client using the Anthropic Messages API.
type Client struct {
	client *anthropic.Client
	model  string
}

// NewClient constructs a new Anthropic client with retries disabled.
func NewClient(opts llm.Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Anthropic")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("anthropic: %w", llm.ErrMissingAPIKey)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: opts.TimeoutOrDefault()}),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	client := anthropic.NewClient(reqOpts...)
	return &Client{client: &client, model: strings.TrimSpace(opts.Model)}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (llm.Generation, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return llm.Generation{}, llm.NewStatusError(providerName, apiErr.StatusCode, err.Error(), err)
		}
		return llm.Generation{}, llm.NewTransportError(providerName, err)
	}

	texts := make([]string, 0, len(resp.Content))
	for _, block := range resp.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	text := llm.JoinText(texts)
	if text == "" {
		return llm.Generation{}, llm.NewInvalidResponse(providerName, "response empty content")
	}

	gen := llm.Generation{
		Text:             text,
		Model:            c.model,
		Provider:         providerName,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}
	if resp.Model != "" {
		gen.Model = string(resp.Model)
	}
	return gen, nil
}

var _ llm.Client = (*Client)(nil)
