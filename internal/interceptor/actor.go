package interceptor

import (
	"context"

	"github.com/fleetdesk/backend/internal/audit"
)

// Operation is a guarded write.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Actor identifies who issues an operation. None of it is authenticated; it
// only keys rate limits, blocks and audit records.
type Actor struct {
	UserID    string
	SessionID string
	ClientIP  string
}

// Identifier returns the key used for blocking.
func (a Actor) Identifier() string {
	return audit.Identifier(a.UserID, a.SessionID)
}

type actorKey struct{}

// WithActor attaches a to ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor attached to ctx, or the zero Actor.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{}
}
