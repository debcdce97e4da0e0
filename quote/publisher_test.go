package quote

import (
	"testing"
	"time"
)

func snapAt(n int) RenderSnapshot {
	return RenderSnapshot{
		Instruments: map[string]InstrumentState{
			"SBER": {Symbol: "SBER", UpdateCount: int64(n)},
		},
		AsOf: time.Now(),
	}
}

func TestPublisherDeliversToAllSubscribers(t *testing.T) {
	p := NewPublisher()
	a := p.Subscribe()
	b := p.Subscribe()

	p.Publish(snapAt(1))

	for _, ch := range []<-chan RenderSnapshot{a, b} {
		select {
		case snap := <-ch:
			if snap.Instruments["SBER"].UpdateCount != 1 {
				t.Fatalf("unexpected snapshot: %+v", snap)
			}
		default:
			t.Fatal("subscriber did not receive snapshot")
		}
	}
}

func TestPublisherLatestWinsForSlowSubscriber(t *testing.T) {
	p := NewPublisher()
	slow := p.Subscribe()

	// Subscriber never drains between publishes
	p.Publish(snapAt(1))
	p.Publish(snapAt(2))
	p.Publish(snapAt(3))

	select {
	case snap := <-slow:
		if got := snap.Instruments["SBER"].UpdateCount; got != 3 {
			t.Fatalf("expected latest snapshot (3), got %d", got)
		}
	default:
		t.Fatal("expected a snapshot to be available")
	}

	select {
	case <-slow:
		t.Fatal("intermediate snapshots must be dropped")
	default:
	}
}

func TestPublisherNoSubscribers(t *testing.T) {
	p := NewPublisher()
	// Must not panic or block
	p.Publish(snapAt(1))
}
