package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// LocalBus delivers published events to in-process handlers on their own
// goroutine. It stands in for the broker when none is configured.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[string][]Handler)}
}

func (b *LocalBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *LocalBus) Publish(ctx context.Context, topic string, key int64, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := h(detached, value); err != nil {
				slog.Error("local event handler failed", "topic", topic, "key", key, "error", err)
			}
		}(h)
	}
	return nil
}

// Wait blocks until every delivered event has been handled.
func (b *LocalBus) Wait() {
	b.wg.Wait()
}
