package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel user change events travel on
const Channel = "nearu:users:changed"

// RedisFeed shares change events between server instances over Redis pub/sub
type RedisFeed struct {
	Client *redis.Client
}

// NewRedisFeed connects to Redis
func NewRedisFeed(addr, pass string, db int) *RedisFeed {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr, Password: pass, DB: db,
	})
	return &RedisFeed{Client: rdb}
}

// Ping checks the connection
func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.Client.Ping(ctx).Err()
}

// Publish sends ev to every instance
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode feed event: %w", err)
	}
	if err := f.Client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish feed event: %w", err)
	}
	return nil
}

// Subscribe delivers events until ctx is done
func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := f.Client.Subscribe(ctx, Channel)
	// wait for the subscription confirmation so no event published afterwards is missed
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logging.Warn().Err(err).Msg("dropping malformed feed event")
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close releases the client
func (f *RedisFeed) Close() error {
	return f.Client.Close()
}
