package testutil

import (
	"context"
	"sync"

	"github.com/rafflehub/backend/pkg/pubsub"
)

// MockPublisher records every published message.
type MockPublisher struct {
	PublishFunc func(context.Context, string, *pubsub.Pack) error

	mu       sync.Mutex
	messages map[string][]*pubsub.Pack
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, pack *pubsub.Pack) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, topic, pack); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages == nil {
		m.messages = map[string][]*pubsub.Pack{}
	}
	m.messages[topic] = append(m.messages[topic], pack)

	return nil
}

func (m *MockPublisher) Messages(topic string) []*pubsub.Pack {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*pubsub.Pack{}, m.messages[topic]...)
}
