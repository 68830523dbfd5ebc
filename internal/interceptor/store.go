package interceptor

import "context"

// Store is the persistence collaborator: generic CRUD keyed by resource name.
type Store interface {
	Create(ctx context.Context, resource string, data map[string]any) (map[string]any, error)
	Update(ctx context.Context, resource, id string, data map[string]any) (map[string]any, error)
	Delete(ctx context.Context, resource, id string) error
	Get(ctx context.Context, resource, id string) (map[string]any, error)
	List(ctx context.Context, resource string) ([]map[string]any, error)
}

// GuardedStore wraps a Store so that every write passes the guard first.
// Only sanitized data ever reaches the wrapped store.
type GuardedStore struct {
	guard *Guard
	next  Store
}

var _ Store = (*GuardedStore)(nil)

// NewGuardedStore decorates next with g.
func NewGuardedStore(g *Guard, next Store) *GuardedStore {
	return &GuardedStore{guard: g, next: next}
}

// Guard returns the guard in front of the store.
func (s *GuardedStore) Guard() *Guard { return s.guard }

func (s *GuardedStore) Create(ctx context.Context, resource string, data map[string]any) (map[string]any, error) {
	d := s.guard.ValidateOperation(ctx, data, OpCreate, resource)
	if !d.IsValid {
		return nil, &Rejection{Decision: d}
	}
	return s.next.Create(ctx, resource, d.SanitizedData)
}

func (s *GuardedStore) Update(ctx context.Context, resource, id string, data map[string]any) (map[string]any, error) {
	d := s.guard.ValidateOperation(ctx, data, OpUpdate, resource)
	if !d.IsValid {
		return nil, &Rejection{Decision: d}
	}
	return s.next.Update(ctx, resource, id, d.SanitizedData)
}

// Delete is block-checked and rate limited; there is no content to inspect.
func (s *GuardedStore) Delete(ctx context.Context, resource, id string) error {
	d := s.guard.ValidateOperation(ctx, nil, OpDelete, resource)
	if !d.IsValid {
		return &Rejection{Decision: d}
	}
	return s.next.Delete(ctx, resource, id)
}

func (s *GuardedStore) Get(ctx context.Context, resource, id string) (map[string]any, error) {
	return s.next.Get(ctx, resource, id)
}

func (s *GuardedStore) List(ctx context.Context, resource string) ([]map[string]any, error) {
	return s.next.List(ctx, resource)
}
