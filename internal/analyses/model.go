package analyses

import (
	"html/template"
	"time"

	"release-analyzer/internal/report"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusBlocked   = "blocked"
)

// DefaultCompanyKey is used when a caller does not name a company.
const DefaultCompanyKey = "XP_TESTE"

// Request is one uploaded release to analyze.
type Request struct {
	FileName   string
	Data       []byte
	CompanyKey string
	// APIKey is a manually entered credential. Empty means use the server's.
	APIKey string
}

// Outcome is a completed analysis. Nothing in it is persisted.
type Outcome struct {
	ID            string
	Report        string
	HTML          template.HTML
	Fields        report.Fields
	HasFields     bool
	Summary       *report.Summary
	Model         string
	Provider      string
	PromptVersion string
	PageCount     int
	DocumentChars int
	Truncated     bool
	DurationMs    int64
}

// Record is the audit entry kept for every attempt. It never holds the
// document text, the prompt or the report.
type Record struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	CompanyKey     string    `json:"companyKey"`
	FileName       string    `json:"fileName"`
	PageCount      int       `json:"pageCount"`
	DocumentChars  int       `json:"documentChars"`
	Truncated      bool      `json:"truncated"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	PromptVersion  string    `json:"promptVersion"`
	Status         string    `json:"status"`
	ErrorCode      string    `json:"errorCode,omitempty"`
	Score          *int      `json:"score,omitempty"`
	Recommendation *string   `json:"recommendation,omitempty"`
	DurationMs     int64     `json:"durationMs"`
	CreatedAt      time.Time `json:"createdAt"`
}
