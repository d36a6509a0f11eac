package analyses

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"release-analyzer/internal/shared/storage/db"
)

// SQLRepo implements Repo on Postgres (pgx) or sqlite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// Create inserts a new audit record.
func (r *SQLRepo) Create(ctx context.Context, record Record) error {
	const query = `
INSERT INTO analyses (
	id, session_id, company_key, file_name, page_count, document_chars, truncated,
	provider, model, prompt_version, status, error_code, score, recommendation, duration_ms, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	var score sql.NullInt64
	if record.Score != nil {
		score = sql.NullInt64{Int64: int64(*record.Score), Valid: true}
	}
	var recommendation sql.NullString
	if record.Recommendation != nil {
		recommendation = sql.NullString{String: *record.Recommendation, Valid: true}
	}

	_, err := r.DB.ExecContext(ctx, r.rebind(query),
		record.ID,
		record.SessionID,
		record.CompanyKey,
		record.FileName,
		record.PageCount,
		record.DocumentChars,
		record.Truncated,
		record.Provider,
		record.Model,
		record.PromptVersion,
		record.Status,
		record.ErrorCode,
		score,
		recommendation,
		record.DurationMs,
		record.CreatedAt.UTC(),
	)
	return err
}

// ListBySession lists records for a session ordered newest-first.
func (r *SQLRepo) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Record, error) {
	limit, offset = normalizePage(limit, offset)

	const query = `
SELECT id, session_id, company_key, file_name, page_count, document_chars, truncated,
       provider, model, prompt_version, status, error_code, score, recommendation, duration_ms, created_at
FROM analyses
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, r.rebind(query), sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		var score sql.NullInt64
		var recommendation sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.CompanyKey,
			&rec.FileName,
			&rec.PageCount,
			&rec.DocumentChars,
			&rec.Truncated,
			&rec.Provider,
			&rec.Model,
			&rec.PromptVersion,
			&rec.Status,
			&rec.ErrorCode,
			&score,
			&recommendation,
			&rec.DurationMs,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if score.Valid {
			v := int(score.Int64)
			rec.Score = &v
		}
		if recommendation.Valid {
			v := recommendation.String
			rec.Recommendation = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// rebind rewrites $n placeholders to ? for sqlite.
func (r *SQLRepo) rebind(query string) string {
	if r.Dialect != db.DialectSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' {
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j > i+1 {
				if _, err := strconv.Atoi(query[i+1 : j]); err == nil {
					b.WriteByte('?')
					i = j - 1
					continue
				}
			}
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

var _ Repo = (*SQLRepo)(nil)
