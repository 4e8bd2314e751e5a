package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"verified-export/internal/export/domain/model"
	"verified-export/internal/export/domain/repository"
	"verified-export/internal/shared/logger"
)

// BusConfig holds configuration for the event bus
type BusConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultBusConfig returns default configuration
func DefaultBusConfig() BusConfig {
	return BusConfig{
		MaxRetries: 1,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Bus fans export events out to subscribed publishers, retrying each one independently
type Bus struct {
	mu       sync.RWMutex
	byType   map[model.EventType][]repository.EventPublisher
	allTypes []repository.EventPublisher
	logger   logger.Logger
	config   BusConfig
}

var _ repository.EventPublisher = (*Bus)(nil)

// NewBus creates an event bus with no subscribers
func NewBus(log logger.Logger, config BusConfig) *Bus {
	if log == nil {
		log = logger.NewLogger()
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Bus{
		byType: make(map[model.EventType][]repository.EventPublisher),
		logger: log.WithComponent("eventbus"),
		config: config,
	}
}

// Subscribe registers p for the given event types, or for every type when none are given
func (b *Bus) Subscribe(p repository.EventPublisher, types ...model.EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(types) == 0 {
		b.allTypes = append(b.allTypes, p)
		b.logger.Debug("Subscribed publisher for all event types")
		return
	}
	for _, t := range types {
		b.byType[t] = append(b.byType[t], p)
		b.logger.Debugf("Subscribed publisher for event type: %s", t)
	}
}

// SubscriberCount returns the number of publishers receiving events of type t
func (b *Bus) SubscriberCount(t model.EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byType[t]) + len(b.allTypes)
}

// Publish delivers event to every matching subscriber. A failing subscriber
// does not stop delivery to the others; all failures are returned joined.
func (b *Bus) Publish(ctx context.Context, event model.ExportEvent) error {
	b.mu.RLock()
	subscribers := make([]repository.EventPublisher, 0, len(b.byType[event.Type])+len(b.allTypes))
	subscribers = append(subscribers, b.byType[event.Type]...)
	subscribers = append(subscribers, b.allTypes...)
	b.mu.RUnlock()

	if len(subscribers) == 0 {
		return nil
	}

	var errs []error
	for i, p := range subscribers {
		if err := b.deliver(ctx, event, p, i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deliver publishes to one subscriber with retry
func (b *Bus) deliver(ctx context.Context, event model.ExportEvent, p repository.EventPublisher, idx int) error {
	var lastErr error

	for attempt := 0; attempt <= b.config.MaxRetries; attempt++ {
		if attempt > 0 {
			b.logger.Warnf("Retrying subscriber %d for event %s (attempt %d/%d)",
				idx, event.Type, attempt+1, b.config.MaxRetries+1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("subscriber %d gave up on event %s: %w", idx, event.Type, ctx.Err())
			case <-time.After(b.config.RetryDelay):
			}
		}

		if err := p.Publish(ctx, event); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("subscriber %d failed after %d attempts: %w", idx, b.config.MaxRetries+1, lastErr)
}

// Close closes every subscriber once
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[repository.EventPublisher]bool)
	var errs []error
	closeOnce := func(p repository.EventPublisher) {
		if seen[p] {
			return
		}
		seen[p] = true
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	for _, p := range b.allTypes {
		closeOnce(p)
	}
	for _, subscribers := range b.byType {
		for _, p := range subscribers {
			closeOnce(p)
		}
	}

	b.allTypes = nil
	b.byType = make(map[model.EventType][]repository.EventPublisher)
	return errors.Join(errs...)
}
