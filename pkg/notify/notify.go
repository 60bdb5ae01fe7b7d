// Package notify propagates recording state transitions to watching clients.
// Events travel over a redis pub/sub push channel, with a polling loop kept
// running alongside it: push delivery confirmation is unreliable in practice,
// so the poller is a safety net rather than a pure fallback.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"worker-scribe/dto"
)

const DefaultPollInterval = 5 * time.Second

func channelFor(id uuid.UUID) string {
	return "recording.status." + id.String()
}

// Notifier publishes status transitions to the push channel. Delivery is
// best-effort: a failed publish is logged and otherwise ignored, since every
// watcher also polls.
type Notifier interface {
	Publish(ctx context.Context, event dto.StatusEvent)
}

type redisNotifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) Notifier {
	return &redisNotifier{rdb: rdb}
}

func (n *redisNotifier) Publish(ctx context.Context, event dto.StatusEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to marshal status event")
		return
	}
	if err := n.rdb.Publish(ctx, channelFor(event.RecordingId), body).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("recording_id", event.RecordingId.String()).
			Msg("failed to publish status event, watchers will pick it up on poll")
	}
}

// StatusSource reads the current state of one recording from the store.
type StatusSource interface {
	Current(ctx context.Context, id uuid.UUID) (dto.StatusEvent, error)
}

// Watcher multiplexes the push subscription and the poller into one event
// stream with at-most-once-per-change delivery. The stream closes after a
// terminal status has been delivered or when ctx is cancelled.
type Watcher struct {
	rdb          *redis.Client
	source       StatusSource
	pollInterval time.Duration
}

func NewWatcher(rdb *redis.Client, source StatusSource, pollInterval time.Duration) *Watcher {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Watcher{
		rdb:          rdb,
		source:       source,
		pollInterval: pollInterval,
	}
}

func (w *Watcher) Watch(ctx context.Context, id uuid.UUID) <-chan dto.StatusEvent {
	events := make(chan dto.StatusEvent, 8)

	go w.run(ctx, id, events)

	return events
}

func (w *Watcher) run(ctx context.Context, id uuid.UUID, events chan<- dto.StatusEvent) {
	defer close(events)

	var pushCh <-chan *redis.Message
	if w.rdb != nil {
		pubsub := w.rdb.Subscribe(ctx, channelFor(id))
		defer pubsub.Close()
		pushCh = pubsub.Channel()
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var lastDelivered string

	deliver := func(event dto.StatusEvent) bool {
		if event.Status.String() == lastDelivered {
			return false
		}
		select {
		case events <- event:
		case <-ctx.Done():
			return true
		}
		lastDelivered = event.Status.String()
		return event.Status.Terminal()
	}

	poll := func() (done bool) {
		event, err := w.source.Current(ctx, id)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("recording_id", id.String()).Msg("status poll failed")
			return false
		}
		return deliver(event)
	}

	if poll() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if poll() {
				return
			}
		case msg, ok := <-pushCh:
			if !ok {
				pushCh = nil
				continue
			}
			var event dto.StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("malformed status event on push channel")
				continue
			}
			if deliver(event) {
				return
			}
		}
	}
}
