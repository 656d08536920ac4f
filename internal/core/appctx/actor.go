package appctx

import (
	"context"
)

// ActorContext identifies who is performing the request.
// The boundary collaborator authenticates; the core only records identity
// in status history and audit entries.
type ActorContext struct {
	// Actor is the human-readable identity (login or station name)
	Actor string

	// WarehouseID is the warehouse the actor operates from, when known.
	// Transfer confirmation uses it to check destination ownership.
	WarehouseID string
}

type actorContextKey struct{}

// WithActor adds ActorContext to context.
func WithActor(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns ActorContext from context.
func GetActor(ctx context.Context) *ActorContext {
	if v, ok := ctx.Value(actorContextKey{}).(*ActorContext); ok {
		return v
	}
	return nil
}

// ActorName returns the actor identity from context, or "system" when absent
// (migrations, seeds, internal maintenance).
func ActorName(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.Actor != "" {
		return a.Actor
	}
	return "system"
}

// ActorWarehouse returns the actor's warehouse from context or empty string.
func ActorWarehouse(ctx context.Context) string {
	if a := GetActor(ctx); a != nil {
		return a.WarehouseID
	}
	return ""
}
