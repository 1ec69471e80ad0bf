package types

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTraceID contextKey = "trace_id"
	keyAgentID contextKey = "agent_id"
	keyRoomID  contextKey = "room_id"
)

// WithTraceID adds trace ID to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// TraceID extracts trace ID from context.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTraceID).(string)
	return v, ok && v != ""
}

// WithAgentID adds the agent ID to context.
func WithAgentID(ctx context.Context, agentID uuid.UUID) context.Context {
	return context.WithValue(ctx, keyAgentID, agentID)
}

// AgentID extracts the agent ID from context.
func AgentID(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(keyAgentID).(uuid.UUID)
	return v, ok && v != uuid.Nil
}

// WithRoomID adds the room ID to context.
func WithRoomID(ctx context.Context, roomID uuid.UUID) context.Context {
	return context.WithValue(ctx, keyRoomID, roomID)
}

// RoomID extracts the room ID from context.
func RoomID(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(keyRoomID).(uuid.UUID)
	return v, ok && v != uuid.Nil
}
