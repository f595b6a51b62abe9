package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/google/uuid"
)

// Sink receives every published event. Consume must not block for long; the bus calls sinks in turn.
type Sink interface {
	Consume(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Consume(ctx context.Context, e Event) error { return f(ctx, e) }

// Bus is a best-effort fan-out: no acknowledgement, no retry, no durability.
// A failing sink is logged and never stops delivery to the remaining sinks.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks}
}

func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

func (b *Bus) Publish(ctx context.Context, t Type, data any) {
	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	e := Event{ID: uuid.NewString(), Type: t, Data: data, OccurredAt: time.Now().UTC()}
	for _, s := range sinks {
		if err := deliver(ctx, s, e); err != nil {
			obs.Component("bus").WithError(err).WithField("event_type", t).Warn("sink failed")
		}
	}
}

func deliver(ctx context.Context, s Sink, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.Consume(ctx, e)
}
