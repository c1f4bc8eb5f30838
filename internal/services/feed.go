package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unicatolica/registro-huellas/internal/models"
)

// FeedChannel is the Redis channel access events are published on.
const FeedChannel = "accesos:feed"

// AccessEvent is the payload broadcast over Redis and WebSocket.
type AccessEvent struct {
	Tipo      string        `json:"tipo"`
	Acceso    models.Acceso `json:"acceso"`
	Timestamp time.Time     `json:"timestamp"`
}

// Feed fans access events out to every connected dashboard. Events go
// through Redis pub/sub so all instances see scans made on any of them.
type Feed struct {
	client *redis.Client
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[chan AccessEvent]struct{}
}

func NewFeed(client *redis.Client, logger *slog.Logger) *Feed {
	return &Feed{
		client:      client,
		logger:      logger,
		subscribers: make(map[chan AccessEvent]struct{}),
	}
}

// PublishAccess publishes an event to Redis.
func (f *Feed) PublishAccess(ctx context.Context, ev AccessEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, FeedChannel, data).Err()
}

// Subscribe registers a local listener. The returned func unsubscribes and
// closes the channel.
func (f *Feed) Subscribe() (<-chan AccessEvent, func()) {
	ch := make(chan AccessEvent, 16)
	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// fanOut delivers ev to local listeners, dropping it for slow ones.
func (f *Feed) fanOut(ev AccessEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subscribers {
		select {
		case ch <- ev:
		default:
			f.logger.Warn("access feed subscriber is slow, event dropped")
		}
	}
}

// Run listens on Redis until ctx is done, reconnecting with backoff.
func (f *Feed) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if f.listen(ctx) {
			backoff = time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

// listen consumes one subscription; it reports whether any message arrived.
func (f *Feed) listen(ctx context.Context) bool {
	pubsub := f.client.Subscribe(ctx, FeedChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			f.logger.Error("access feed subscribe failed", "error", err)
		}
		return false
	}
	f.logger.Info("✅ Access feed subscriber started", "channel", FeedChannel)

	received := false
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Error("access feed subscriber error", "error", err)
			}
			return received
		}
		received = true

		var ev AccessEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			f.logger.Error("failed to decode access event", "error", err)
			continue
		}
		f.fanOut(ev)
	}
}
