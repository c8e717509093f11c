package stream

import (
	"testing"

	"go.uber.org/zap"

	"rebelodds/internal/engine"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	a := hub.subscribe()
	b := hub.subscribe()
	defer hub.unsubscribe(a)
	defer hub.unsubscribe(b)

	hub.Publish(engine.TradeTick{TradeID: "t1"})

	for _, ch := range []chan engine.TradeTick{a, b} {
		select {
		case tick := <-ch:
			if tick.TradeID != "t1" {
				t.Fatalf("tick = %+v", tick)
			}
		default:
			t.Fatalf("subscriber missed tick")
		}
	}
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1)
	ch := hub.subscribe()
	defer hub.unsubscribe(ch)

	// The second publish must not block even with a full buffer.
	hub.Publish(engine.TradeTick{TradeID: "t1"})
	hub.Publish(engine.TradeTick{TradeID: "t2"})

	tick := <-ch
	if tick.TradeID != "t1" {
		t.Fatalf("first tick = %+v", tick)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected buffered tick %+v", extra)
	default:
	}
}
