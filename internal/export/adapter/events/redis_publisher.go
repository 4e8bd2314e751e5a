package events

import (
	"context"
	"time"

	"verified-export/internal/export/config"
	"verified-export/internal/export/domain/model"
	"verified-export/internal/export/domain/repository"
	apperrors "verified-export/internal/shared/errors"
	"verified-export/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

const (
	// maxStreamLength caps the events stream; older entries are trimmed approximately.
	maxStreamLength = 10000
	// defaultPublishTimeout bounds one XADD, including dialing.
	defaultPublishTimeout = 500 * time.Millisecond
)

// RedisPublisher appends export events to a Redis stream
type RedisPublisher struct {
	client  *redis.Client
	stream  string
	timeout time.Duration
	logger  logger.Logger
}

var _ repository.EventPublisher = (*RedisPublisher)(nil)

func publishTimeout(cfg config.RedisConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return defaultPublishTimeout
	}
	return cfg.Timeout
}

// NewRedisClient creates a Redis client from the export's Redis configuration.
// Commands are not retried by the client and honour context deadlines.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	timeout := publishTimeout(cfg)
	return redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.Database,
		DialTimeout:           timeout,
		ReadTimeout:           timeout,
		WriteTimeout:          timeout,
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	})
}

// NewRedisPublisher creates a publisher writing to stream. Each Publish gives
// up after timeout; a non-positive timeout uses the default.
func NewRedisPublisher(client *redis.Client, stream string, timeout time.Duration, log logger.Logger) *RedisPublisher {
	if log == nil {
		log = logger.NewLogger()
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &RedisPublisher{
		client:  client,
		stream:  stream,
		timeout: timeout,
		logger:  log.WithComponent("events"),
	}
}

// Publish adds event to the stream
func (p *RedisPublisher) Publish(ctx context.Context, event model.ExportEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: maxStreamLength,
		Approx: true,
		Values: eventValues(event),
	}).Result()
	if err != nil {
		return apperrors.NewPublishError("failed to publish export event").
			WithCollection(event.Collection).
			WithDetail("stream", p.stream).
			WithDetail("event_type", string(event.Type)).
			WithDetail("timeout", p.timeout.String()).
			WithCause(err)
	}

	p.logger.WithFields(map[string]interface{}{
		"stream":     p.stream,
		"event_type": string(event.Type),
		"event_id":   id,
	}).Debug("Export event published")

	return nil
}

// Close closes the Redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// eventValues flattens an event into stream fields
func eventValues(event model.ExportEvent) map[string]interface{} {
	values := map[string]interface{}{
		"type":      string(event.Type),
		"runId":     event.RunID,
		"database":  event.Database,
		"rows":      event.Rows,
		"timestamp": event.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if event.Collection != "" {
		values["collection"] = event.Collection
	}
	if event.File != "" {
		values["file"] = event.File
	}
	if event.Error != "" {
		values["error"] = event.Error
	}
	return values
}

// NoopPublisher drops every event. It is used when no Redis address is configured.
type NoopPublisher struct{}

var _ repository.EventPublisher = NoopPublisher{}

// Publish does nothing
func (NoopPublisher) Publish(context.Context, model.ExportEvent) error { return nil }

// Close does nothing
func (NoopPublisher) Close() error { return nil }

// NewPublisher returns a Bus delivering to the Redis stream when cfg enables
// one and a NoopPublisher otherwise
func NewPublisher(cfg config.RedisConfig, log logger.Logger) repository.EventPublisher {
	if !cfg.Enabled() {
		return NoopPublisher{}
	}
	bus := NewBus(log, DefaultBusConfig())
	bus.Subscribe(NewRedisPublisher(NewRedisClient(cfg), cfg.Stream, publishTimeout(cfg), log))
	return bus
}
