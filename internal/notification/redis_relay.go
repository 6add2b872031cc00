package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/assetflow/backend/internal/events"
)

// defaultChannel is the Redis pub/sub channel shared by all pods.
const defaultChannel = "assetflow:events"

// RedisRelay mirrors bus events over Redis pub/sub so websocket sessions
// connected to other pods see them too. Single-pod deployments simply run
// without a relay.
type RedisRelay struct {
	client  *redis.Client
	bus     *events.Bus
	hub     *Hub
	channel string
	logger  *log.Logger
}

// NewRedisRelay creates a relay on the given Redis address.
func NewRedisRelay(addr string, bus *events.Bus, hub *Hub) *RedisRelay {
	return &RedisRelay{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		bus:     bus,
		hub:     hub,
		channel: defaultChannel,
		logger:  log.New(log.Writer(), "[RedisRelay] ", log.LstdFlags),
	}
}

// Run publishes local bus events to Redis and broadcasts events arriving
// from other pods. Own-pod events are skipped on receive because the hub
// already saw them from the local bus. Blocks until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) {
	local := r.bus.Subscribe()
	defer r.bus.Unsubscribe(local)

	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	remote := sub.Channel()

	seen := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-local:
			if !ok {
				return
			}
			r.forward(ctx, ev, seen)

		case msg, ok := <-remote:
			if !ok {
				return
			}
			var ev events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.Printf("bad relay payload: %v", err)
				continue
			}
			if _, own := seen[ev.ID]; own {
				delete(seen, ev.ID)
				continue
			}
			r.hub.Broadcast([]byte(msg.Payload))
		}
	}
}

// forward publishes one local event to the shared channel. The event id is
// remembered only after a successful publish: an id with no echo coming back
// would otherwise sit in the map forever.
func (r *RedisRelay) forward(ctx context.Context, ev *events.Event, seen map[string]struct{}) {
	payload, err := ev.JSON()
	if err != nil {
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Printf("publish failed: %v", err)
		return
	}
	seen[ev.ID] = struct{}{}
}

// Close releases the Redis connection.
func (r *RedisRelay) Close() error {
	return r.client.Close()
}
