package sessions

import (
	"context"
	"errors"
)

var ErrMissingID = errors.New("session id is required")

// Store persists session state between requests.
type Store interface {
	// Load returns the saved state, or a zero State carrying id when none exists.
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, state State) error
}
