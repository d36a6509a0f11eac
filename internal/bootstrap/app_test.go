package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"release-analyzer/internal/analyses"
	"release-analyzer/internal/shared/config"
)

func testConfig() config.Config {
	return config.Config{
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LLMProvider:     config.ProviderGemini,
		LLMModel:        config.DefaultModel(config.ProviderGemini),
		LLMTimeout:      time.Second,
		PromptVersion:   "v1",
		MaxUploadBytes:  1 << 20,
		SessionTTL:      time.Hour,
		RateLimitPerMin: 6,
		RateLimitBurst:  3,
	}
}

func TestBuildWiresMemoryDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app, err := Build(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(app.Close)

	if app.DB != nil || app.Redis != nil {
		t.Fatalf("expected no external connections")
	}
	if _, ok := app.AnalysesRepo.(*analyses.MemoryRepo); !ok {
		t.Fatalf("expected memory repo, got %T", app.AnalysesRepo)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(resp.Body.String(), "Financial Analyst API v1") {
		t.Fatalf("unexpected status body %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(resp.Body.String(), "analysis_started_total") {
		t.Fatalf("expected metrics output, got %s", resp.Body.String())
	}
}

func TestBuildUsesSQLiteWhenConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.DatabaseURL = "sqlite://" + t.TempDir() + "/audit.db"
	app, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(app.Close)

	if _, ok := app.AnalysesRepo.(*analyses.SQLRepo); !ok {
		t.Fatalf("expected sql repo, got %T", app.AnalysesRepo)
	}
	if names := app.Health.Names(); len(names) != 1 || names[0] != "database" {
		t.Fatalf("expected database health check, got %v", names)
	}
}

func TestBuildRejectsUnknownPromptVersion(t *testing.T) {
	cfg := testConfig()
	cfg.PromptVersion = "v99"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown prompt version")
	}
}

func TestBuildRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "mistral"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestBuildRequiresSessionSecretInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error without SESSION_SECRET")
	}
}

func TestNewClientFactoryPerProvider(t *testing.T) {
	for _, provider := range []string{config.ProviderGemini, config.ProviderOpenAI, config.ProviderAnthropic} {
		cfg := testConfig()
		cfg.LLMProvider = provider
		cfg.LLMModel = config.DefaultModel(provider)

		factory, err := NewClientFactory(cfg)
		if err != nil {
			t.Fatalf("%s: NewClientFactory: %v", provider, err)
		}
		client, err := factory("test-key")
		if err != nil || client == nil {
			t.Fatalf("%s: factory: %v", provider, err)
		}
		if _, err := factory(""); err == nil {
			t.Fatalf("%s: expected error for empty key", provider)
		}
	}

	cfg := testConfig()
	cfg.LLMProvider = "mistral"
	if _, err := NewClientFactory(cfg); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
