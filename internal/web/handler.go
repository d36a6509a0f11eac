// Package web serves the upload page and the JSON status route.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"release-analyzer/internal/analyses"
	"release-analyzer/internal/shared/telemetry"
)

//go:embed templates/*.html
var templateFS embed.FS

// ServiceName is reported by the status route.
const ServiceName = "Financial Analyst API v1"

type pageData struct {
	ManualKey  bool
	CompanyKey string
	Outcome    *analyses.Outcome
	Error      string
	ErrorCode  string
}

// Handler renders the upload page on top of the analyses handler.
type Handler struct {
	analyses *analyses.Handler
	page     *template.Template
}

// NewHandler parses the embedded page template.
func NewHandler(a *analyses.Handler) (*Handler, error) {
	page, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}
	return &Handler{analyses: a, page: page}, nil
}

// RegisterRoutes attaches the page routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.index)
	r.GET("/app", h.form)
	r.POST("/app", h.submit)
}

func (h *Handler) index(c *gin.Context) {
	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		h.form(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
}

func (h *Handler) form(c *gin.Context) {
	h.render(c, http.StatusOK, h.baseData(analyses.DefaultCompanyKey))
}

func (h *Handler) submit(c *gin.Context) {
	companyKey := strings.TrimSpace(c.PostForm("companyKey"))
	data := h.baseData(companyKey)

	upload, err := h.analyses.ReadUpload(c, companyKey)
	if err == nil {
		var out analyses.Outcome
		out, err = h.analyses.Run(c, upload)
		if err == nil {
			data.Outcome = &out
			h.render(c, http.StatusOK, data)
			return
		}
	}

	status, code, message := analyses.HTTPError(err)
	data.Error = message
	data.ErrorCode = code
	h.render(c, status, data)
}

func (h *Handler) baseData(companyKey string) pageData {
	if companyKey == "" {
		companyKey = analyses.DefaultCompanyKey
	}
	return pageData{
		ManualKey:  !h.analyses.Svc.HasServerCredential(),
		CompanyKey: companyKey,
	}
}

func (h *Handler) render(c *gin.Context, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.page.Execute(&buf, data); err != nil {
		telemetry.Error("web.render_failed", map[string]any{
			"request_id": c.GetString("requestId"),
			"error":      err.Error(),
		})
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
