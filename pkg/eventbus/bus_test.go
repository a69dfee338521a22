package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBus(queueSize int) *Bus {
	return New(queueSize, nil, zap.NewNop().Sugar())
}

func TestPublishDeliversOnlyToSubscribedChannel(t *testing.T) {
	bus := newTestBus(4)
	sub := bus.Register()
	bus.Subscribe(sub, SettlementChannel("m1"))

	bus.Publish(EventOrderSubmitted, "", map[string]string{"ignored": "true"}, OrderBookChannel("CASSET"))
	bus.Publish(EventOrderMatched, "m1", map[string]string{"matchId": "m1"}, SettlementChannel("m1"))

	select {
	case msg := <-sub.Outbound():
		require.Equal(t, string(SettlementChannel("m1")), msg.Channel)
		require.Equal(t, EventOrderMatched, msg.Event)
	default:
		t.Fatal("expected one queued event")
	}

	select {
	case <-sub.Outbound():
		t.Fatal("unexpected second event")
	default:
	}
}

func TestMatchRoutesFanOutToEveryScopedChannel(t *testing.T) {
	bus := newTestBus(4)
	orderbookSub := bus.Register()
	bus.Subscribe(orderbookSub, OrderBookChannel("CASSET"))
	traderSub := bus.Register()
	bus.Subscribe(traderSub, TraderChannel("alice"))
	settlementSub := bus.Register()
	bus.Subscribe(settlementSub, SettlementChannel("m1"))

	bus.Publish(EventOrderMatched, "m1", "payload", MatchRoutes("CASSET", "alice", "bob", "m1")...)

	for _, sub := range []*Subscriber{orderbookSub, traderSub, settlementSub} {
		select {
		case msg := <-sub.Outbound():
			require.Equal(t, EventOrderMatched, msg.Event)
		default:
			t.Fatal("expected event on every routed channel")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := newTestBus(4)
	sub := bus.Register()
	bus.Subscribe(sub, SettlementChannel("m1"))
	bus.Unsubscribe(sub, SettlementChannel("m1"))

	bus.Publish(EventSignatureComplete, "m1", "x", SettlementChannel("m1"))

	select {
	case <-sub.Outbound():
		t.Fatal("unexpected event after unsubscribe")
	default:
	}
}

func TestFullQueueDisconnectsSubscriber(t *testing.T) {
	bus := newTestBus(1)
	sub := bus.Register()
	bus.Subscribe(sub, SettlementChannel("m1"))

	bus.Publish(EventSignatureAdded, "m1", "one", SettlementChannel("m1"))
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Publish(EventSignatureAdded, "m1", "two", SettlementChannel("m1"))
	require.Equal(t, 0, bus.SubscriberCount())
}

func TestUnregisterClosesOutbound(t *testing.T) {
	bus := newTestBus(4)
	sub := bus.Register()
	bus.Unregister(sub)

	_, ok := <-sub.Outbound()
	require.False(t, ok)
}

// TestConcurrentPublishNeverPanicsOnSlowSubscriber drives many publishers
// at a subscriber whose queue fills immediately, mirroring the real
// fan-in (HTTP handlers, proof workers, the settlement sink all call
// Publish concurrently). Before Subscriber.send/close were
// mutex-serialized, two publishers racing to disconnect the same
// subscriber could panic with "send on closed channel".
func TestConcurrentPublishNeverPanicsOnSlowSubscriber(t *testing.T) {
	bus := newTestBus(1)
	sub := bus.Register()
	bus.Subscribe(sub, SettlementChannel("m1"))

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(EventSignatureAdded, "m1", "x", SettlementChannel("m1"))
		}()
	}
	wg.Wait()

	require.Equal(t, 0, bus.SubscriberCount())
}

func TestMissedPongsCountsElapsedIntervals(t *testing.T) {
	bus := newTestBus(4)
	sub := bus.Register()

	now := time.Now()
	sub.RecordPong(now)

	require.Equal(t, 0, sub.MissedPongs(now.Add(10*time.Second), 30*time.Second))
	require.Equal(t, 2, sub.MissedPongs(now.Add(65*time.Second), 30*time.Second))
}
