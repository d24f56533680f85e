package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

// Subject est partagé par NATS (subject) et Redis (channel).
const Subject = "posts.events"

func encode(event domain.LifecycleEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshalling error: %w", err)
	}
	return data, nil
}

// deliver décode un message du broker et le republie dans le notifier local.
func deliver(ctx context.Context, local ports.EventPublisher, data []byte) (domain.LifecycleEvent, error) {
	var event domain.LifecycleEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("invalid event format: %w", err)
	}
	if err := local.Publish(ctx, event); err != nil {
		return event, fmt.Errorf("local publish: %w", err)
	}
	return event, nil
}
