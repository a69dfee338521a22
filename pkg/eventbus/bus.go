// Package eventbus is the topic-keyed pub/sub gateway between internal
// state changes (order book updates, proof progress, settlement
// transitions) and streaming subscribers, adapted from a connection hub
// that tracked raw broadcast/register/unregister channels down to
// structured channel names with per-subscriber backpressure.
package eventbus

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/duskpool/core/pkg/metrics"
)

// Channel is a structured routing destination. Channel names follow the
// fixed families from spec §3/§4.7: "orderbook:<asset>", "trader:<addr>",
// and "settlement:<matchId>".
type Channel string

// OrderBookChannel names the channel for order/match events scoped to one
// asset.
func OrderBookChannel(assetAddress string) Channel {
	return Channel("orderbook:" + assetAddress)
}

// TraderChannel names the channel for events scoped to one trader.
func TraderChannel(trader string) Channel {
	return Channel("trader:" + trader)
}

// SettlementChannel names the channel for every event scoped to one match.
func SettlementChannel(matchID string) Channel {
	return Channel("settlement:" + matchID)
}

// WSEvent is the envelope delivered to a subscriber for a published event,
// matching the streaming surface's `event` message shape.
type WSEvent struct {
	Type      string `json:"type"` // always "event"
	Event     string `json:"event"`
	Channel   string `json:"channel"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Bus fans out published events to every subscriber registered for the
// event's channel. A subscriber whose outbound queue is full when an event
// arrives is disconnected rather than allowed to slow the publisher.
// A single RWMutex guards the subscription map; the expensive part of
// publishing (marshalling happens downstream, at the WebSocket transport)
// is a non-blocking channel send per subscriber, so one slow subscriber
// never blocks another or the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]map[Channel]bool
	queueSize   int
	logger      *zap.SugaredLogger
	metrics     *metrics.Metrics
}

// New constructs a Bus. queueSize bounds each subscriber's outbound
// channel; a subscriber that cannot drain it is disconnected. m may be nil
// in tests that don't care about metrics.
func New(queueSize int, m *metrics.Metrics, logger *zap.SugaredLogger) *Bus {
	return &Bus{
		subscribers: make(map[*Subscriber]map[Channel]bool),
		queueSize:   queueSize,
		logger:      logger,
		metrics:     m,
	}
}

// recordSubscriberCount publishes the current subscriber count, if a
// metrics bundle is wired. Callers already hold b.mu.
func (b *Bus) recordSubscriberCount() {
	if b.metrics != nil {
		b.metrics.SubscriberCount.Set(float64(len(b.subscribers)))
	}
}

// Register adds a new subscriber with no initial channel subscriptions.
func (b *Bus) Register() *Subscriber {
	s := &Subscriber{
		outbound: make(chan WSEvent, b.queueSize),
		lastPong: time.Now(),
	}
	b.mu.Lock()
	b.subscribers[s] = make(map[Channel]bool)
	b.recordSubscriberCount()
	b.mu.Unlock()
	return s
}

// Unregister removes a subscriber and closes its outbound channel. All of
// its subscriptions are implicitly released. Safe to call concurrently,
// including from multiple Publish calls racing on the same slow
// subscriber: removal from the map is idempotent here, and
// Subscriber.close is idempotent and mutex-guarded against any in-flight
// send.
func (b *Bus) Unregister(s *Subscriber) {
	b.mu.Lock()
	_, ok := b.subscribers[s]
	delete(b.subscribers, s)
	b.recordSubscriberCount()
	b.mu.Unlock()
	if ok {
		s.close()
	}
}

// Subscribe adds a channel to a subscriber's interest set.
func (b *Bus) Subscribe(s *Subscriber, channel Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if channels, ok := b.subscribers[s]; ok {
		channels[channel] = true
	}
}

// Unsubscribe removes a channel from a subscriber's interest set.
func (b *Bus) Unsubscribe(s *Subscriber, channel Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if channels, ok := b.subscribers[s]; ok {
		delete(channels, channel)
	}
}

// Publish fans eventType/data out to every channel in channels. Per-channel
// delivery order to a given subscriber matches publish call order (FIFO);
// there is no ordering guarantee across different channels or matches.
// matchID is accepted for logging only — it is not itself part of the wire
// envelope beyond whatever the caller embedded in data.
func (b *Bus) Publish(eventType, matchID string, data any, channels ...Channel) {
	if len(channels) == 0 {
		return
	}
	ts := time.Now().UnixMilli()

	for _, channel := range channels {
		msg := WSEvent{
			Type:      "event",
			Event:     eventType,
			Channel:   string(channel),
			Data:      data,
			Timestamp: ts,
		}

		b.mu.RLock()
		targets := make([]*Subscriber, 0, len(b.subscribers))
		for s, channels := range b.subscribers {
			if channels[channel] {
				targets = append(targets, s)
			}
		}
		b.mu.RUnlock()

		for _, s := range targets {
			if !s.send(msg) {
				b.logger.Warnw("subscriber outbound queue full or already closed, disconnecting",
					"channel", channel, "event", eventType, "matchId", matchID)
				b.Unregister(s)
			}
		}
	}
}

// SubscriberCount reports the number of currently registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
