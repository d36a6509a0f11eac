package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"release-analyzer/internal/analyses"
	"release-analyzer/internal/services/health"
	"release-analyzer/internal/shared/auth"
	"release-analyzer/internal/shared/config"
	"release-analyzer/internal/shared/metrics"
	"release-analyzer/internal/shared/server/middleware"
	"release-analyzer/internal/web"
)

const (
	rateGroupAnalyze = "ANALYZE"
	rateGroupRead    = "READ"
	readPerMinute    = 120
	readBurst        = 30
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	Signer          *auth.SessionSigner
	AnalysisHandler *analyses.Handler
	WebHandler      *web.Handler
	Health          *health.Service
	RateLimiter     *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if deps.Config.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = deps.Config.MaxUploadBytes
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	r.GET("/metrics", metrics.Handler())
	r.GET("/api/v1/health", health.Handler(healthSvc))

	app := r.Group("/")
	app.Use(
		middleware.Session(deps.Signer, deps.Config.Env == "production"),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rateRules(deps.Config),
			GroupFor: rateGroup,
			Limiter:  deps.RateLimiter,
		}),
	)

	if deps.WebHandler != nil {
		deps.WebHandler.RegisterRoutes(app)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(app.Group("/api/v1"))
	}

	return r
}

func rateRules(cfg config.Config) map[string]middleware.RateLimitRule {
	perMin := cfg.RateLimitPerMin
	if perMin <= 0 {
		perMin = 6
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 3
	}
	return map[string]middleware.RateLimitRule{
		rateGroupAnalyze: {Rate: perMin / 60.0, Burst: burst},
		rateGroupRead:    middleware.PerMinute(readPerMinute, readBurst),
	}
}

// rateGroup puts every pipeline run in the ANALYZE bucket.
func rateGroup(c *gin.Context) string {
	path := c.Request.URL.Path
	if c.Request.Method == http.MethodPost {
		if path == "/app" || strings.HasPrefix(path, "/api/v1/analyses") || strings.HasPrefix(path, "/api/v1/analisar-pdf") {
			return rateGroupAnalyze
		}
	}
	if strings.HasPrefix(path, "/api/") {
		return rateGroupRead
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
