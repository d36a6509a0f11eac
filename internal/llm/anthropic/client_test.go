package anthropic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"release-analyzer/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(llm.Options{APIKey: "test-key", Model: "claude-haiku-4-5", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGenerateJoinsTextBlocks(t *testing.T) {
	var gotKey, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5",
			"content":[{"type":"text","text":"**NOTA (0-10):** 5\n"},{"type":"text","text":"**RECOMENDAÇÃO:** VENDA"}],
			"stop_reason":"end_turn","usage":{"input_tokens":30,"output_tokens":12}}`))
	})

	gen, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotKey != "test-key" {
		t.Fatalf("unexpected api key header %q", gotKey)
	}
	if gotPath != "/v1/messages" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gen.Text != "**NOTA (0-10):** 5\n**RECOMENDAÇÃO:** VENDA" {
		t.Fatalf("unexpected text %q", gen.Text)
	}
	if gen.Provider != "anthropic" || gen.Model != "claude-haiku-4-5" {
		t.Fatalf("unexpected generation %+v", gen)
	}
	if gen.PromptTokens != 30 || gen.CompletionTokens != 12 {
		t.Fatalf("unexpected usage %+v", gen)
	}
}

func TestGenerateServerErrorIsUnavailable(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"Internal server error"}}`))
	})

	_, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, llm.ErrGeneration) || llm.KindOf(err) != llm.KindUnavailable {
		t.Fatalf("expected unavailable generation error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry, got %d calls", calls)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(llm.Options{Model: "claude-haiku-4-5"}); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
