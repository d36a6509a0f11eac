package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"release-analyzer/internal/extract"
	"release-analyzer/internal/llm"
	"release-analyzer/internal/prompt"
	"release-analyzer/internal/report"
	"release-analyzer/internal/sessions"
	"release-analyzer/internal/shared/metrics"
	"release-analyzer/internal/shared/telemetry"
	"release-analyzer/internal/shared/util"
)

var defaultCatalog = sync.OnceValue(prompt.MustLoadCatalog)

// Service runs the analysis pipeline. It holds no per-session state: the
// caller passes the session in and saves the state that comes back.
type Service struct {
	Catalog       *prompt.Catalog
	PromptVersion string
	NewClient     llm.Factory
	// ServerAPIKey is the credential from the environment, if any.
	ServerAPIKey string
	Provider     string
	Model        string
	Repo         Repo
	Now          func() time.Time
}

// HasServerCredential reports whether requests may omit an API key.
func (s *Service) HasServerCredential() bool {
	return strings.TrimSpace(s.ServerAPIKey) != ""
}

// Analyze validates and extracts the upload, composes the prompt, calls the
// model and post-processes the report. A generation failure is recorded in
// the returned state so the next attempt with the same credential is refused
// before any network call.
func (s *Service) Analyze(ctx context.Context, state sessions.State, req Request) (Outcome, sessions.State, error) {
	start := s.now()
	metrics.IncAnalysisStarted()

	rec := Record{
		ID:            uuid.NewString(),
		SessionID:     state.ID,
		CompanyKey:    companyKey(req.CompanyKey),
		FileName:      req.FileName,
		Provider:      s.Provider,
		Model:         s.Model,
		PromptVersion: s.PromptVersion,
		CreatedAt:     start.UTC(),
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(s.ServerAPIKey)
	}
	if apiKey == "" {
		return Outcome{}, state, s.fail(ctx, rec, start, ErrConfiguration)
	}

	fingerprint := util.Fingerprint(apiKey)
	if state.Blocks(fingerprint) {
		metrics.IncAnalysisBlocked()
		rec.Status = StatusBlocked
		rec.ErrorCode = ErrorCodeGenerationBlocked
		s.record(ctx, rec, start)
		s.logStatus(ctx, rec, StatusBlocked)
		return Outcome{}, state, &BlockedError{LastError: state.LastError}
	}

	if err := extract.ValidateUpload(req.FileName, req.Data); err != nil {
		return Outcome{}, state, s.fail(ctx, rec, start, fmt.Errorf("%w: %w", ErrInvalidUpload, err))
	}

	doc, err := extract.ExtractPDF(ctx, req.Data)
	if err != nil {
		return Outcome{}, state, s.fail(ctx, rec, start, err)
	}
	rec.PageCount = doc.PageCount

	tpl := s.template()
	composed := prompt.Compose(tpl, doc.Text)
	rec.PromptVersion = composed.Version
	rec.DocumentChars = composed.DocumentChars
	rec.Truncated = composed.Truncated
	telemetry.Info("analysis.prompt", map[string]any{
		"request_id":     requestIDFromContext(ctx),
		"analysis_id":    rec.ID,
		"prompt_version": composed.Version,
		"prompt_hash":    prompt.Fingerprint(composed),
		"page_count":     doc.PageCount,
		"document_chars": composed.DocumentChars,
		"truncated":      composed.Truncated,
	})

	if s.NewClient == nil {
		return Outcome{}, state, s.fail(ctx, rec, start, fmt.Errorf("%w: no llm provider", ErrConfiguration))
	}
	client, err := s.NewClient(apiKey)
	if err != nil {
		return Outcome{}, state, s.fail(ctx, rec, start, fmt.Errorf("%w: %v", ErrConfiguration, err))
	}

	gen, err := client.Generate(ctx, composed.Text)
	if err != nil {
		// A caller abort says nothing about the credential or the model.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return Outcome{}, state, s.fail(ctx, rec, start, fmt.Errorf("%w: %w", ErrCanceled, err))
		}
		if !errors.Is(err, llm.ErrGeneration) {
			err = llm.NewTransportError(s.Provider, err)
		}
		next := state.RecordFailure(fingerprint, err.Error(), s.now())
		return Outcome{}, next, s.fail(ctx, rec, start, err)
	}
	if gen.Provider != "" {
		rec.Provider = gen.Provider
	}
	if gen.Model != "" {
		rec.Model = gen.Model
	}

	fields, ok := report.Extract(gen.Text)
	metrics.IncSummary(ok)
	out := Outcome{
		ID:            rec.ID,
		Report:        gen.Text,
		HTML:          report.RenderHTML(gen.Text),
		Fields:        fields,
		HasFields:     ok,
		Model:         rec.Model,
		Provider:      rec.Provider,
		PromptVersion: composed.Version,
		PageCount:     doc.PageCount,
		DocumentChars: composed.DocumentChars,
		Truncated:     composed.Truncated,
	}
	if ok {
		summary := report.NewSummary(fields, rec.Model)
		out.Summary = &summary
		score := fields.Score
		recommendation := string(fields.Recommendation)
		rec.Score = &score
		rec.Recommendation = &recommendation
	}

	rec.Status = StatusCompleted
	out.DurationMs = s.record(ctx, rec, start)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(out.DurationMs))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       rec.ID,
		"session_id":        rec.SessionID,
		"status":            StatusCompleted,
		"provider":          rec.Provider,
		"model":             rec.Model,
		"prompt_tokens":     gen.PromptTokens,
		"completion_tokens": gen.CompletionTokens,
		"summary_parsed":    ok,
		"duration_ms":       out.DurationMs,
	})
	return out, state.RecordSuccess(s.now()), nil
}

// List returns the audit trail for a session, newest first.
func (s *Service) List(ctx context.Context, sessionID string, limit, offset int) ([]Record, error) {
	if sessionID == "" {
		return nil, errors.New("sessionID is required")
	}
	if s.Repo == nil {
		return []Record{}, nil
	}
	return s.Repo.ListBySession(ctx, sessionID, limit, offset)
}

func (s *Service) fail(ctx context.Context, rec Record, start time.Time, err error) error {
	rec.Status = StatusFailed
	rec.ErrorCode = ErrorCode(err)
	metrics.IncAnalysisFailed(rec.ErrorCode)
	s.record(ctx, rec, start)
	fields := map[string]any{
		"error_code": rec.ErrorCode,
		"error":      err.Error(),
	}
	var ge *llm.GenerationError
	if errors.As(err, &ge) {
		fields["generation_kind"] = string(ge.Kind)
		fields["upstream_status"] = ge.StatusCode
	}
	s.logStatus(ctx, rec, StatusFailed, fields)
	return err
}

// record stores the audit entry. Failures are logged and never propagated.
func (s *Service) record(ctx context.Context, rec Record, start time.Time) int64 {
	rec.DurationMs = s.now().Sub(start).Milliseconds()
	if s.Repo == nil {
		return rec.DurationMs
	}
	if err := s.Repo.Create(context.WithoutCancel(ctx), rec); err != nil {
		telemetry.Warn("analysis.audit_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"analysis_id": rec.ID,
			"error":       err.Error(),
		})
	}
	return rec.DurationMs
}

func (s *Service) logStatus(ctx context.Context, rec Record, status string, extra ...map[string]any) {
	fields := map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"analysis_id": rec.ID,
		"session_id":  rec.SessionID,
		"status":      status,
	}
	for _, e := range extra {
		for k, v := range e {
			fields[k] = v
		}
	}
	telemetry.Warn("analysis.status", fields)
}

func (s *Service) template() prompt.Template {
	catalog := s.Catalog
	if catalog == nil {
		catalog = defaultCatalog()
	}
	tpl, ok := catalog.Get(s.PromptVersion)
	if !ok && s.PromptVersion != "" {
		telemetry.Warn("analysis.prompt_version_unknown", map[string]any{
			"requested": s.PromptVersion,
			"using":     tpl.Version,
		})
	}
	return tpl
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func companyKey(raw string) string {
	if key := strings.TrimSpace(raw); key != "" {
		return key
	}
	return DefaultCompanyKey
}
