package analyses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"release-analyzer/internal/sessions"
	"release-analyzer/internal/shared/server/middleware"
	"release-analyzer/internal/shared/server/respond"
	"release-analyzer/internal/shared/telemetry"
	"release-analyzer/internal/shared/util"
)

const (
	defaultMaxUploadBytes = 20 << 20
	// APIKeyHeader carries a manually entered credential.
	APIKeyHeader = "X-LLM-Api-Key"
)

// statusClientClosedRequest is logged when the client disconnects mid-analysis.
const statusClientClosedRequest = 499

// ErrFileTooLarge is returned when the upload exceeds the configured limit.
var ErrFileTooLarge = errors.New("file too large")

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc            *Service
	Sessions       sessions.Store
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, store sessions.Store, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, Sessions: store, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.createAnalysis)
	rg.GET("/analyses", h.listAnalyses)
	rg.POST("/analisar-pdf/", h.legacyAnalyze)
	rg.GET("/session", h.getSession)
	rg.DELETE("/session", h.resetSession)
}

// Upload holds the multipart fields of an analysis request.
type Upload struct {
	FileName   string
	Data       []byte
	CompanyKey string
	APIKey     string
}

// ReadUpload reads the "file" part and optional credential from the request.
func (h *Handler) ReadUpload(c *gin.Context, companyKey string) (Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Upload{}, ErrFileTooLarge
		}
		return Upload{}, fmt.Errorf("%w: file is required", ErrInvalidUpload)
	}
	if fileHeader.Size > h.MaxUploadBytes {
		return Upload{}, ErrFileTooLarge
	}
	name, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("%w: unable to read file", ErrInvalidUpload)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("%w: unable to read file", ErrInvalidUpload)
	}
	if int64(len(data)) > h.MaxUploadBytes {
		return Upload{}, ErrFileTooLarge
	}

	apiKey := strings.TrimSpace(c.GetHeader(APIKeyHeader))
	if apiKey == "" {
		apiKey = strings.TrimSpace(c.PostForm("apiKey"))
	}
	return Upload{FileName: name, Data: data, CompanyKey: companyKey, APIKey: apiKey}, nil
}

// Run loads the caller's session, runs the pipeline and saves the new state.
func (h *Handler) Run(c *gin.Context, upload Upload) (Outcome, error) {
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	sessionID := middleware.SessionIDFromContext(c)

	state := sessions.State{ID: sessionID}
	if h.Sessions != nil && sessionID != "" {
		loaded, err := h.Sessions.Load(ctx, sessionID)
		if err != nil {
			telemetry.Warn("session.load_failed", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"session_id": sessionID,
				"error":      err.Error(),
			})
		} else {
			state = loaded
		}
	}

	out, next, err := h.Svc.Analyze(ctx, state, Request{
		FileName:   upload.FileName,
		Data:       upload.Data,
		CompanyKey: upload.CompanyKey,
		APIKey:     upload.APIKey,
	})

	if h.Sessions != nil && sessionID != "" && next != state {
		if saveErr := h.Sessions.Save(context.WithoutCancel(ctx), next); saveErr != nil {
			telemetry.Warn("session.save_failed", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"session_id": sessionID,
				"error":      saveErr.Error(),
			})
		}
	}

	if err != nil {
		c.Set("analysisStatus", StatusFailed)
		if errors.Is(err, ErrGenerationBlocked) {
			c.Set("analysisStatus", StatusBlocked)
		}
		return Outcome{}, err
	}
	c.Set("analysisId", out.ID)
	c.Set("analysisStatus", StatusCompleted)
	return out, nil
}

// HTTPError maps a pipeline error to status, code and user-facing message.
func HTTPError(err error) (int, string, string) {
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit"
	}
	code := ErrorCode(err)
	switch code {
	case ErrorCodeCredentialRequired:
		return http.StatusUnauthorized, code, "LLM API key not configured; provide one in the " + APIKeyHeader + " header or the apiKey field"
	case ErrorCodeGenerationBlocked:
		return http.StatusConflict, code, err.Error()
	case ErrorCodeInvalidFile:
		return http.StatusBadRequest, code, "invalid file: please upload a PDF"
	case ErrorCodeDocumentRead:
		return http.StatusUnprocessableEntity, code, err.Error()
	case ErrorCodeGeneration:
		return http.StatusServiceUnavailable, code, err.Error()
	case ErrorCodeCanceled:
		return statusClientClosedRequest, code, "request canceled"
	}
	return http.StatusInternalServerError, ErrorCodeInternal, "failed to analyze document"
}

func writeError(c *gin.Context, err error) {
	status, code, message := HTTPError(err)
	respond.Error(c, status, code, message, nil)
}

func (h *Handler) createAnalysis(c *gin.Context) {
	upload, err := h.ReadUpload(c, c.PostForm("companyKey"))
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := h.Run(c, upload)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{
		"analysisId":    out.ID,
		"provider":      out.Provider,
		"model":         out.Model,
		"promptVersion": out.PromptVersion,
		"pageCount":     out.PageCount,
		"documentChars": out.DocumentChars,
		"truncated":     out.Truncated,
		"durationMs":    out.DurationMs,
		"report":        out.Report,
		"reportHtml":    string(out.HTML),
	}
	if out.Summary != nil {
		resp["summary"] = out.Summary
	}
	respond.OK(c, resp)
}

func (h *Handler) legacyAnalyze(c *gin.Context) {
	empresaID := strings.TrimSpace(c.Query("empresa_id"))
	if empresaID == "" {
		empresaID = DefaultCompanyKey
	}
	upload, err := h.ReadUpload(c, empresaID)
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := h.Run(c, upload)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"status":        "success",
		"message":       "Análise concluída para Empresa ID: " + empresaID,
		"analise_texto": out.Report,
		"empresa_chave": empresaID,
	})
}

func (h *Handler) listAnalyses(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	if sessionID == "" {
		respond.Error(c, http.StatusUnauthorized, "session_required", "missing session", nil)
		return
	}

	limit := defaultListLimit
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	records, err := h.Svc.List(c.Request.Context(), sessionID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}
	respond.OK(c, gin.H{"items": records})
}

func (h *Handler) getSession(c *gin.Context) {
	state, ok := h.loadSession(c)
	if !ok {
		return
	}
	respond.OK(c, gin.H{
		"sessionId":           state.ID,
		"generationFailed":    state.GenerationFailed,
		"lastError":           state.LastError,
		"serverCredential":    h.Svc.HasServerCredential(),
		"manualKeyRequired":   !h.Svc.HasServerCredential(),
		"manualKeyHeaderName": APIKeyHeader,
	})
}

func (h *Handler) resetSession(c *gin.Context) {
	state, ok := h.loadSession(c)
	if !ok {
		return
	}
	if h.Sessions != nil {
		if err := h.Sessions.Save(c.Request.Context(), sessions.State{ID: state.ID}); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to reset session", nil)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) loadSession(c *gin.Context) (sessions.State, bool) {
	sessionID := middleware.SessionIDFromContext(c)
	if sessionID == "" {
		respond.Error(c, http.StatusUnauthorized, "session_required", "missing session", nil)
		return sessions.State{}, false
	}
	if h.Sessions == nil {
		return sessions.State{ID: sessionID}, true
	}
	state, err := h.Sessions.Load(c.Request.Context(), sessionID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load session", nil)
		return sessions.State{}, false
	}
	return state, true
}
