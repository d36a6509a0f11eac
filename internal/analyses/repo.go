package analyses

import "context"

const (
	defaultListLimit = 20
	maxListLimit     = 50
)

// Repo defines persistence operations for the audit trail.
type Repo interface {
	Create(ctx context.Context, record Record) error
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Record, error)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
