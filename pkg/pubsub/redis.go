package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
)

// RedisPubSub implements PubSub on Redis channels.
type RedisPubSub struct {
	client        redis.UniversalClient
	ownsClient    bool
	subscriptions map[string]*redis.PubSub
	mu            sync.Mutex
}

// NewRedisPubSub dials a dedicated Redis client for the event bus.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ps := NewRedisPubSubWithClient(client)
	ps.ownsClient = true
	return ps, nil
}

// NewRedisPubSubWithClient publishes through an existing client. Close
// leaves the client open.
func NewRedisPubSubWithClient(client redis.UniversalClient) *RedisPubSub {
	return &RedisPubSub{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
	}
}

// Publish publishes an event to the specified channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe subscribes to a specific channel. The returned channel closes
// when ctx is done or the subscription is removed.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	sub := r.client.Subscribe(ctx, channel)
	return r.track(ctx, channel, sub)
}

// SubscribePattern subscribes to channels matching a glob pattern.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	sub := r.client.PSubscribe(ctx, pattern)
	return r.track(ctx, pattern, sub)
}

func (r *RedisPubSub) track(ctx context.Context, key string, sub *redis.PubSub) (<-chan *Event, error) {
	// Wait for the subscription confirmation so no event published after
	// this call returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}

	r.mu.Lock()
	if old, ok := r.subscriptions[key]; ok {
		old.Close()
	}
	r.subscriptions[key] = sub
	r.mu.Unlock()

	eventCh := make(chan *Event, 100)
	go r.processMessages(ctx, sub, eventCh)
	return eventCh, nil
}

// Unsubscribe removes a channel or pattern subscription.
func (r *RedisPubSub) Unsubscribe(ctx context.Context, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subscriptions[channel]; ok {
		delete(r.subscriptions, channel)
		return sub.Close()
	}
	return nil
}

// Close closes all subscriptions, and the client when it was dialled here.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, sub := range r.subscriptions {
		sub.Close()
		delete(r.subscriptions, key)
	}

	if r.ownsClient {
		return r.client.Close()
	}
	return nil
}

func (r *RedisPubSub) processMessages(ctx context.Context, sub *redis.PubSub, eventCh chan<- *Event) {
	defer close(eventCh)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			default:
				// Subscriber is not keeping up.
			}
		}
	}
}
