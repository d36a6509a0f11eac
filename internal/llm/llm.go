package llm

import (
	"context"
	"strings"
	"time"
)

// Client abstracts LLM providers for release analysis. A request is plain
// prompt text in and markdown text out.
type Client interface {
	Generate(ctx context.Context, prompt string) (Generation, error)
}

// Generation is a single model response.
type Generation struct {
	Text             string
	Model            string
	Provider         string
	PromptTokens     int
	CompletionTokens int
}

// Options configure a provider client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// DefaultTimeout bounds a hung transport. It does not limit how long a
// healthy model may take.
const DefaultTimeout = 120 * time.Second

// TimeoutOrDefault returns the configured timeout or DefaultTimeout.
func (o Options) TimeoutOrDefault() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// Factory builds a Client for a given credential so manually entered keys
// work per request.
type Factory func(apiKey string) (Client, error)

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string) (Generation, error)

func (f ClientFunc) Generate(ctx context.Context, prompt string) (Generation, error) {
	return f(ctx, prompt)
}

// JoinText concatenates non-empty response parts.
func JoinText(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(p)
	}
	return strings.TrimSpace(b.String())
}
