package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keySessionID contextKey = "session_id"
	keyCommandID contextKey = "command_id"
	keyActorID   contextKey = "actor_id"
)

// WithSessionID adds the session ID to context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, keySessionID, sessionID)
}

// SessionID extracts the session ID from context.
func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keySessionID).(string)
	return v, ok && v != ""
}

// WithCommandID adds the command ID to context.
func WithCommandID(ctx context.Context, commandID string) context.Context {
	return context.WithValue(ctx, keyCommandID, commandID)
}

// CommandID extracts the command ID from context.
func CommandID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyCommandID).(string)
	return v, ok && v != ""
}

// WithActorID adds the acting user's ID to context. The collaborator layer
// enforces authorization; the engine only propagates the identity for
// logging and audit fields.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, keyActorID, actorID)
}

// ActorID extracts the acting user's ID from context.
func ActorID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyActorID).(string)
	return v, ok && v != ""
}
