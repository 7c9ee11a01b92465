package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Broadcaster fans events for one request out to remote listeners.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event) error
	// Listen streams raw JSON events for requestID until ctx is done or the returned stop func is called.
	Listen(ctx context.Context, requestID string) (<-chan []byte, func(), error)
}

// RedisBroadcaster publishes each event to the channel <prefix><request id>.
type RedisBroadcaster struct {
	client *redis.Client
	prefix string
}

// NewRedisBroadcaster builds a broadcaster over an existing client.
func NewRedisBroadcaster(client *redis.Client, prefix string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel for a request.
func (b *RedisBroadcaster) Channel(requestID string) string {
	return b.prefix + requestID
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, b.Channel(event.ServiceRequestID), data).Err()
}

func (b *RedisBroadcaster) Listen(ctx context.Context, requestID string) (<-chan []byte, func(), error) {
	sub := b.client.Subscribe(ctx, b.Channel(requestID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", b.Channel(requestID), err)
	}

	out := make(chan []byte, 16)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	go func() {
		defer close(out)
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-done:
					return
				case <-ctx.Done():
					stop()
					return
				}
			}
		}
	}()
	return out, stop, nil
}

// LocalBroadcaster delivers events to in-process listeners. It stands in for
// Redis in single-node deployments and tests. Slow listeners drop events.
type LocalBroadcaster struct {
	mu        sync.Mutex
	nextID    int
	listeners map[string]map[int]chan []byte
}

func NewLocalBroadcaster() *LocalBroadcaster {
	return &LocalBroadcaster{listeners: make(map[string]map[int]chan []byte)}
}

func (b *LocalBroadcaster) Broadcast(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.listeners[event.ServiceRequestID] {
		select {
		case ch <- data:
		default:
		}
	}
	return nil
}

func (b *LocalBroadcaster) Listen(ctx context.Context, requestID string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.listeners[requestID] == nil {
		b.listeners[requestID] = make(map[int]chan []byte)
	}
	b.listeners[requestID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners[requestID], id)
			if len(b.listeners[requestID]) == 0 {
				delete(b.listeners, requestID)
			}
			close(ch)
			b.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ch, stop, nil
}
