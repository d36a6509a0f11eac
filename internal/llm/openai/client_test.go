package openai

import (
	"context"
	"encoding/json"
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
	client, err := NewClient(llm.Options{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGenerateReturnsContent(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini-2024-07-18",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"**RECOMENDAÇÃO:** MANTER"}}],
			"usage":{"prompt_tokens":50,"completion_tokens":8,"total_tokens":58}}`))
	})

	gen, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Fatalf("unexpected model in request %v", gotBody["model"])
	}
	if _, ok := gotBody["response_format"]; ok {
		t.Fatalf("expected plain text request")
	}
	if gen.Text != "**RECOMENDAÇÃO:** MANTER" || gen.Model != "gpt-4o-mini-2024-07-18" || gen.Provider != "openai" {
		t.Fatalf("unexpected generation %+v", gen)
	}
	if gen.PromptTokens != 50 || gen.CompletionTokens != 8 {
		t.Fatalf("unexpected usage %+v", gen)
	}
}

func TestGenerateUnauthorizedIsCredentialError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key","param":null}}`))
	})

	_, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, llm.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if llm.KindOf(err) != llm.KindCredential {
		t.Fatalf("expected credential kind, got %s", llm.KindOf(err))
	}
	if calls != 1 {
		t.Fatalf("expected a single request, got %d", calls)
	}
}

func TestGenerateRateLimitedNotRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota","param":null}}`))
	})

	_, err := client.Generate(context.Background(), "prompt")
	if llm.KindOf(err) != llm.KindQuota {
		t.Fatalf("expected quota kind, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry, got %d calls", calls)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(llm.Options{Model: "gpt-4o-mini"}); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
