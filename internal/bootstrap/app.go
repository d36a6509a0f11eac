package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"release-analyzer/internal/analyses"
	"release-analyzer/internal/llm"
	anthropicllm "release-analyzer/internal/llm/anthropic"
	"release-analyzer/internal/llm/gemini"
	openaillm "release-analyzer/internal/llm/openai"
	"release-analyzer/internal/prompt"
	"release-analyzer/internal/services/health"
	"release-analyzer/internal/sessions"
	"release-analyzer/internal/shared/auth"
	"release-analyzer/internal/shared/config"
	"release-analyzer/internal/shared/server"
	"release-analyzer/internal/shared/storage/db"
	"release-analyzer/internal/shared/telemetry"
	"release-analyzer/internal/web"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Redis            *redis.Client
	Sessions         sessions.Store
	AnalysesRepo     analyses.Repo
	AnalysesService  *analyses.Service
	AnalysisHandler  *analyses.Handler
	WebHandler       *web.Handler
	Health           *health.Service
	Signer           *auth.SessionSigner
	PromptCatalog    *prompt.Catalog
	GenerationClient llm.Factory
}

// Build prepares dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	signer, err := auth.NewSessionSigner(cfg.SessionSecret, cfg.Env, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	catalog, err := prompt.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load prompt catalog: %w", err)
	}
	if _, ok := catalog.Get(cfg.PromptVersion); !ok {
		return nil, fmt.Errorf("unknown PROMPT_VERSION %q (available: %s)", cfg.PromptVersion, strings.Join(catalog.Versions(), ", "))
	}

	factory, err := NewClientFactory(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:           cfg,
		Health:           health.NewService(),
		Signer:           signer,
		PromptCatalog:    catalog,
		GenerationClient: factory,
	}

	sqlDB, dialect, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.AnalysesRepo = &analyses.SQLRepo{DB: sqlDB, Dialect: dialect}
		app.Health.Register("database", sqlDB.PingContext)
	} else {
		app.AnalysesRepo = analyses.NewMemoryRepo()
	}

	if err := buildSessions(ctx, app); err != nil {
		app.Close()
		return nil, err
	}

	app.AnalysesService = &analyses.Service{
		Catalog:       catalog,
		PromptVersion: cfg.PromptVersion,
		NewClient:     factory,
		ServerAPIKey:  cfg.LLMAPIKey,
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMModel,
		Repo:          app.AnalysesRepo,
	}
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService, app.Sessions, cfg.MaxUploadBytes)
	app.WebHandler, err = web.NewHandler(app.AnalysisHandler)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load web templates: %w", err)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Signer:          signer,
		AnalysisHandler: app.AnalysisHandler,
		WebHandler:      app.WebHandler,
		Health:          app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":               cfg.Env,
		"provider":          cfg.LLMProvider,
		"model":             cfg.LLMModel,
		"prompt_version":    cfg.PromptVersion,
		"server_credential": cfg.HasServerCredential(),
		"audit_store":       auditStoreName(sqlDB, dialect),
		"session_store":     sessionStoreName(app.Redis),
	})
	return app, nil
}

// Close releases external connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

// NewClientFactory returns a factory building the configured provider's
// client for a given credential.
func NewClientFactory(cfg config.Config) (llm.Factory, error) {
	base := llm.Options{
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
	}
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return func(apiKey string) (llm.Client, error) {
			opts := base
			opts.APIKey = apiKey
			return gemini.NewClient(opts)
		}, nil
	case config.ProviderOpenAI:
		return func(apiKey string) (llm.Client, error) {
			opts := base
			opts.APIKey = apiKey
			return openaillm.NewClient(opts)
		}, nil
	case config.ProviderAnthropic:
		return func(apiKey string) (llm.Client, error) {
			opts := base
			opts.APIKey = apiKey
			return anthropicllm.NewClient(opts)
		}, nil
	}
	return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, db.Dialect, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		telemetry.Info("bootstrap.audit_memory", map[string]any{"reason": "DATABASE_URL empty"})
		return nil, "", nil
	}

	sqlDB, dialect, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB, dialect)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.audit_memory", map[string]any{"reason": "database unavailable", "error": err.Error()})
			return nil, "", nil
		}
		return nil, "", err
	}
	return sqlDB, dialect, nil
}

func buildSessions(ctx context.Context, app *App) error {
	cfg := app.Config
	if strings.TrimSpace(cfg.RedisURL) == "" {
		app.Sessions = sessions.NewMemoryStore(cfg.SessionTTL)
		return nil
	}
	client, err := sessions.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.sessions_memory", map[string]any{"reason": "redis unavailable", "error": err.Error()})
			app.Sessions = sessions.NewMemoryStore(cfg.SessionTTL)
			return nil
		}
		return err
	}
	app.Redis = client
	app.Sessions = sessions.NewRedisStore(client, cfg.SessionTTL)
	app.Health.Register("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func auditStoreName(sqlDB *sql.DB, dialect db.Dialect) string {
	if sqlDB == nil {
		return "memory"
	}
	return string(dialect)
}

func sessionStoreName(client *redis.Client) string {
	if client == nil {
		return "memory"
	}
	return "redis"
}
