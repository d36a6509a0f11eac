package gemini

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
	client, err := NewClient(llm.Options{APIKey: "test-key", Model: "gemini-2.5-flash", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGenerateSendsPromptAndKey(t *testing.T) {
	var gotPath, gotKey, gotText string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) == 1 && len(req.Contents[0].Parts) == 1 {
			gotText = req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"## Relatório\n"},{"text":"**NOTA (0-10):** 7"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":120,"candidatesTokenCount":40},"modelVersion":"gemini-2.5-flash"}`))
	})

	gen, err := client.Generate(context.Background(), "analise isto")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotPath != "/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotText != "analise isto" {
		t.Fatalf("expected prompt text, got %q", gotText)
	}
	if gen.Text != "## Relatório\n**NOTA (0-10):** 7" {
		t.Fatalf("unexpected text %q", gen.Text)
	}
	if gen.Provider != "gemini" || gen.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected generation %+v", gen)
	}
	if gen.PromptTokens != 120 || gen.CompletionTokens != 40 {
		t.Fatalf("unexpected usage %+v", gen)
	}
}

func TestGenerateInvalidKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := client.Generate(context.Background(), "x")
	if !errors.Is(err, llm.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	var ge *llm.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GenerationError")
	}
	if ge.Kind != llm.KindCredential || ge.StatusCode != 400 {
		t.Fatalf("unexpected error %+v", ge)
	}
	if ge.Message != "API key not valid. Please pass a valid API key." {
		t.Fatalf("expected provider message verbatim, got %q", ge.Message)
	}
}

func TestGenerateQuotaAndOutage(t *testing.T) {
	cases := []struct {
		status int
		want   llm.Kind
	}{
		{http.StatusTooManyRequests, llm.KindQuota},
		{http.StatusServiceUnavailable, llm.KindUnavailable},
	}
	for _, tc := range cases {
		status := tc.status
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`not json`))
		})
		_, err := client.Generate(context.Background(), "x")
		if got := llm.KindOf(err); got != tc.want {
			t.Fatalf("status %d: expected %s, got %s (%v)", status, tc.want, got, err)
		}
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	})
	_, err := client.Generate(context.Background(), "x")
	if llm.KindOf(err) != llm.KindInvalidResponse {
		t.Fatalf("expected invalid response, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(llm.Options{Model: "gemini-2.5-flash"}); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewClient(llm.Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected model error")
	}
}
