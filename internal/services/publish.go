package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ingaz2013/sari-sub001/internal/events"
)

// publish emits ev best-effort. A nil publisher is a no-op and failures are
// only logged; domain state is already committed when events go out.
func publish(ctx context.Context, pub EventPublisher, ev events.Event) {
	if pub == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := pub.Publish(ctx, ev); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("event", ev.Type).Msg("event publish failed")
	}
}
