package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// mockTransport implements sentry.Transport and keeps events in memory.
type mockTransport struct {
	mu     sync.RWMutex
	events []*sentry.Event
}

//nolint:gocritic // hugeParam: interface requirement, cannot change signature
func (t *mockTransport) Configure(_ sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(_ time.Duration) bool { return true }

func (t *mockTransport) FlushWithContext(ctx context.Context) bool {
	return ctx.Err() == nil
}

func (t *mockTransport) Close() {}

// Events returns a copy of the captured events.
func (t *mockTransport) Events() []*sentry.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*sentry.Event(nil), t.events...)
}
