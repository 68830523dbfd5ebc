package audit

import (
	"context"
	"sync"
	"time"
)

// Store is the durable home of the newest violations. Save receives the full
// capped tail, oldest first, and replaces whatever was stored before.
type Store interface {
	Load(ctx context.Context) ([]Violation, error)
	Save(ctx context.Context, violations []Violation) error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	items []Violation
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) ([]Violation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Violation(nil), m.items...), nil
}

func (m *MemoryStore) Save(_ context.Context, violations []Violation) error {
	m.mu.Lock()
	m.items = append([]Violation(nil), violations...)
	m.mu.Unlock()
	return nil
}

// Alert is the payload sent to the alerting collaborator.
type Alert struct {
	Violation Violation `json:"violation"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Alerter delivers critical violations out of band.
type Alerter interface {
	Alert(ctx context.Context, a Alert) error
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(ctx context.Context, a Alert) error

func (f AlerterFunc) Alert(ctx context.Context, a Alert) error { return f(ctx, a) }

// BlockListener is told about every newly issued block.
type BlockListener func(Block)
