package timer

import (
	"context"
	"sync"

	"github.com/ldi/stint/pkg/models"
)

// Store persists the single timer state blob.
type Store interface {
	// Load returns the stored state, or a fresh empty state when none exists.
	Load(ctx context.Context) (*models.TimerState, error)
	Save(ctx context.Context, state *models.TimerState) error
}

// Updater is implemented by stores that can run a whole load-modify-save
// cycle atomically, e.g. inside a database transaction. fn reports whether
// it changed the state; nothing is written when it did not or when it
// failed.
type Updater interface {
	Update(ctx context.Context, fn func(state *models.TimerState) (bool, error)) error
}

// MemoryStore keeps the state in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	state *models.TimerState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*models.TimerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return models.NewTimerState(), nil
	}
	return s.state.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, state *models.TimerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state.Clone()
	return nil
}
