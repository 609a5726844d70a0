package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix    = "notifications:"
	inboxPrefix      = "inbox:"
	defaultInboxSize = 100
)

// RedisPublisher publishes each event on the recipient's channel and keeps
// the most recent ones in a capped inbox list.
type RedisPublisher struct {
	client    *redis.Client
	logger    *slog.Logger
	inboxSize int64
}

func NewRedisPublisher(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisPublisherWithClient(client, logger), nil
}

func NewRedisPublisherWithClient(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{client: client, logger: logger, inboxSize: defaultInboxSize}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func (p *RedisPublisher) OrderPlaced(ctx context.Context, order domain.Order) error {
	return p.publish(ctx, placedEvents(order))
}

func (p *RedisPublisher) OrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus) error {
	return p.publish(ctx, statusEvents(order, previous))
}

// Inbox returns up to limit of the recipient's events, newest first. A
// limit <= 0 reads the whole capped list. Nothing in the request path reads
// inboxes; this is the read side for operators and integration tests.
func (p *RedisPublisher) Inbox(ctx context.Context, to Recipient, limit int64) ([]Event, error) {
	if limit <= 0 {
		limit = p.inboxSize
	}
	raw, err := p.client.LRange(ctx, inboxPrefix+string(to), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			p.logger.WarnContext(ctx, "skip malformed inbox entry", "recipient", to, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (p *RedisPublisher) publish(ctx context.Context, envelopes []envelope) error {
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, env := range envelopes {
			data, err := json.Marshal(env.event)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			inbox := inboxPrefix + string(env.to)
			pipe.LPush(ctx, inbox, data)
			pipe.LTrim(ctx, inbox, 0, p.inboxSize-1)
			pipe.Publish(ctx, channelPrefix+string(env.to), data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish notifications: %w", err)
	}

	p.logger.DebugContext(ctx, "notifications published", "count", len(envelopes))
	return nil
}
