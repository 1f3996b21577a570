// Package broadcast defines the fire-and-forget notification sink the core
// pushes decision and audit updates through. The core never waits for or
// depends on a broadcast outcome; a dead sink must not affect moderation.
package broadcast

import "context"

// Event types pushed to observers.
const (
	EventModerationDecision = "moderation:decision"
	EventAuditEntry         = "audit:entry"
	EventRoomUpdate         = "room:update"
	EventParticipantUpdate  = "participant:update"
)

// Broadcaster delivers an event to whoever is listening. Implementations must
// be non-blocking from the caller's perspective and swallow their own errors.
type Broadcaster interface {
	Broadcast(ctx context.Context, eventType string, payload any)
}

// Nop discards all events. Used when no observer channel is configured and in
// tests that do not care about notifications.
type Nop struct{}

func (Nop) Broadcast(context.Context, string, any) {}

// Fanout mirrors every event to multiple sinks.
type Fanout []Broadcaster

func (f Fanout) Broadcast(ctx context.Context, eventType string, payload any) {
	for _, b := range f {
		b.Broadcast(ctx, eventType, payload)
	}
}

// Func adapts a function to the Broadcaster interface; handy in tests.
type Func func(ctx context.Context, eventType string, payload any)

func (fn Func) Broadcast(ctx context.Context, eventType string, payload any) {
	fn(ctx, eventType, payload)
}
