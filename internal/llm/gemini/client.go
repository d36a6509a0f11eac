package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"release-analyzer/internal/llm"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	apiKeyHeader   = "x-goog-api-key"
	maxErrorBody   = 64 << 10
)

// Client implements llm.Client using the Gemini generateContent REST API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new Gemini client.
func NewClient(opts llm.Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini: %w", llm.ErrMissingAPIKey)
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   strings.TrimSpace(opts.Model),
		baseURL: base,
		httpClient: &http.Client{
			Timeout: opts.TimeoutOrDefault(),
		},
	}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
	ModelVersion string `json:"modelVersion"`
}

type errorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
}

func (c *Client) Generate(ctx context.Context, prompt string) (llm.Generation, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return llm.Generation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return llm.Generation{}, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return llm.Generation{}, llm.NewTransportError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return llm.Generation{}, llm.NewStatusError(providerName, resp.StatusCode, errorMessage(body), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Generation{}, llm.NewTransportError(providerName, err)
	}
	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.Generation{}, llm.NewInvalidResponse(providerName, "response parse: "+err.Error())
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return llm.Generation{}, llm.NewInvalidResponse(providerName, "prompt blocked: "+parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return llm.Generation{}, llm.NewInvalidResponse(providerName, "response missing candidates")
	}

	parts := parsed.Candidates[0].Content.Parts
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		texts = append(texts, p.Text)
	}
	text := llm.JoinText(texts)
	if text == "" {
		reason := parsed.Candidates[0].FinishReason
		if reason == "" {
			reason = "empty"
		}
		return llm.Generation{}, llm.NewInvalidResponse(providerName, "response empty content ("+reason+")")
	}

	gen := llm.Generation{
		Text:     text,
		Model:    c.model,
		Provider: providerName,
	}
	if parsed.ModelVersion != "" {
		gen.Model = parsed.ModelVersion
	}
	if parsed.UsageMetadata != nil {
		gen.PromptTokens = parsed.UsageMetadata.PromptTokenCount
		gen.CompletionTokens = parsed.UsageMetadata.CandidatesTokenCount
	}
	return gen, nil
}

func errorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}

var _ llm.Client = (*Client)(nil)
