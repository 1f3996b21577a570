// Package redispub mirrors broadcast events onto a Redis channel so other
// processes (a second console instance, an alerting worker) can follow the
// event stream without a WebSocket connection to this one.
package redispub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher implements broadcast.Broadcaster over Redis PUBLISH. Publish
// failures are logged and swallowed: the event stream is best-effort and
// must never affect the operation that emitted the event.
type Publisher struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

func New(client redis.UniversalClient, channel string, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, channel: channel, logger: logger}
}

func (p *Publisher) Broadcast(ctx context.Context, eventType string, payload any) {
	raw, err := json.Marshal(envelope{
		Type:      eventType,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "drop unmarshalable redis event", "event_type", eventType, "error", err)
		return
	}

	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.logger.WarnContext(ctx, "redis publish failed", "channel", p.channel, "event_type", eventType, "error", err)
	}
}
