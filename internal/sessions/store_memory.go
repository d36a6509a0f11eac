package sessions

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps session state in process with expiry.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: cache.New(ttl, ttl/2)}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (State, error) {
	if id == "" {
		return State{}, ErrMissingID
	}
	if v, ok := m.cache.Get(id); ok {
		if st, ok := v.(State); ok {
			return st, nil
		}
	}
	return State{ID: id}, nil
}

func (m *MemoryStore) Save(ctx context.Context, state State) error {
	if state.ID == "" {
		return ErrMissingID
	}
	m.cache.SetDefault(state.ID, state)
	return nil
}

var _ Store = (*MemoryStore)(nil)
