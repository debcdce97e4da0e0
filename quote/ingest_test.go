package quote

import (
	"testing"
	"time"
)

type countingNotifier struct {
	n int
}

func (c *countingNotifier) EventAccepted() { c.n++ }

func newTestIngest(notify eventNotifier) (*Ingest, *Store, *LatencyAggregator) {
	store := NewStore(nil)
	latency := NewLatencyAggregator(10)
	in := NewIngest(store, latency, notify, IngestBounds{}, nil)
	return in, store, latency
}

func TestIngestDropEmptySymbol(t *testing.T) {
	in, store, _ := newTestIngest(nil)

	res := in.OnEvent(UpdateEvent{
		Symbol:         "   ",
		Bid:            &Level{Price: 100},
		ReceiveInstant: time.Now(),
	})
	if res.Accepted {
		t.Fatal("expected drop")
	}
	if res.Reason != DropEmptySymbol {
		t.Fatalf("reason = %q, want %q", res.Reason, DropEmptySymbol)
	}
	if store.Len() != 0 {
		t.Fatal("drop must not mutate the store")
	}
}

func TestIngestDropNoBookData(t *testing.T) {
	in, store, _ := newTestIngest(nil)

	res := in.OnEvent(UpdateEvent{
		Symbol:         "SBER",
		RawTimestamp:   float64(1690000000000),
		ReceiveInstant: time.Now(),
	})
	if res.Accepted || res.Reason != DropNoBookData {
		t.Fatalf("got %+v, want drop with %q", res, DropNoBookData)
	}
	if store.Len() != 0 {
		t.Fatal("drop must not mutate the store")
	}
}

func TestIngestAcceptWithLatency(t *testing.T) {
	notify := &countingNotifier{}
	in, store, latency := newTestIngest(notify)

	exch := time.Date(2023, 7, 22, 2, 46, 40, 0, time.UTC)
	receive := exch.Add(15 * time.Millisecond)

	res := in.OnEvent(UpdateEvent{
		Symbol:         "SBER",
		Bid:            &Level{Price: 250.5},
		Ask:            &Level{Price: 250.7},
		RawTimestamp:   float64(exch.UnixMilli()),
		ReceiveInstant: receive,
	})
	if !res.Accepted {
		t.Fatalf("expected accept, got %+v", res)
	}
	if notify.n != 1 {
		t.Fatalf("notifier calls = %d, want 1", notify.n)
	}

	st, ok := store.Get("SBER")
	if !ok {
		t.Fatal("SBER missing from store")
	}
	if st.LastLatencyMs == nil || *st.LastLatencyMs != 15.0 {
		t.Fatalf("LastLatencyMs = %v, want 15.0", st.LastLatencyMs)
	}
	if st.LastExchangeInstant == nil || !st.LastExchangeInstant.Equal(exch) {
		t.Fatalf("LastExchangeInstant = %v, want %v", st.LastExchangeInstant, exch)
	}
	if got := latency.Stats().Count; got != 1 {
		t.Fatalf("latency samples = %d, want 1", got)
	}
}

func TestIngestInvalidTimestampStillAppliesPrices(t *testing.T) {
	in, store, latency := newTestIngest(nil)

	res := in.OnEvent(UpdateEvent{
		Symbol:         "SBER",
		Bid:            &Level{Price: 250.5},
		RawTimestamp:   "garbage",
		ReceiveInstant: time.Now(),
	})
	if !res.Accepted {
		t.Fatalf("invalid timestamp must not drop the event, got %+v", res)
	}

	st, _ := store.Get("SBER")
	if st.Bid == nil || st.Bid.Price != 250.5 {
		t.Fatalf("price not applied: %+v", st.Bid)
	}
	if st.LastExchangeInstant != nil || st.LastLatencyMs != nil {
		t.Fatal("latency fields must stay unset on invalid timestamp")
	}
	if latency.Stats().Count != 0 {
		t.Fatal("no latency sample expected")
	}
}

func TestIngestRejectsImplausibleLatency(t *testing.T) {
	in, store, latency := newTestIngest(nil)

	// Exchange instant two hours in the past: the price applies but the
	// latency sample never reaches the window.
	exch := time.Now().Add(-2 * time.Hour)
	res := in.OnEvent(UpdateEvent{
		Symbol:         "SBER",
		Bid:            &Level{Price: 250.5},
		RawTimestamp:   float64(exch.UnixMilli()),
		ReceiveInstant: time.Now(),
	})
	if !res.Accepted {
		t.Fatalf("expected accept, got %+v", res)
	}
	if latency.Stats().Count != 0 {
		t.Fatal("out-of-bounds sample must not enter the window")
	}
	st, _ := store.Get("SBER")
	if st.LastLatencyMs != nil {
		t.Fatal("out-of-bounds latency must not surface on state")
	}
	if st.LastExchangeInstant == nil {
		t.Fatal("valid exchange instant should still be recorded")
	}
}

func TestIngestUpdateCountSkipsDropped(t *testing.T) {
	in, store, _ := newTestIngest(nil)
	now := time.Now()

	for i := 0; i < 5; i++ {
		in.OnEvent(UpdateEvent{Symbol: "SBER", Bid: &Level{Price: 100 + float64(i)}, ReceiveInstant: now})
	}
	in.OnEvent(UpdateEvent{Symbol: "SBER", ReceiveInstant: now})       // no book data
	in.OnEvent(UpdateEvent{Symbol: "", Bid: &Level{Price: 1}, ReceiveInstant: now}) // empty symbol

	st, _ := store.Get("SBER")
	if st.UpdateCount != 5 {
		t.Fatalf("UpdateCount = %d, want 5 (drops excluded)", st.UpdateCount)
	}
}

func TestIngestSetBounds(t *testing.T) {
	in, _, latency := newTestIngest(nil)
	in.SetBounds(IngestBounds{MaxLatencyMs: 10, MaxClockSkewMs: 1})

	exch := time.Now().Add(-50 * time.Millisecond)
	in.OnEvent(UpdateEvent{
		Symbol:         "SBER",
		Bid:            &Level{Price: 1},
		RawTimestamp:   float64(exch.UnixMilli()),
		ReceiveInstant: time.Now(),
	})
	if latency.Stats().Count != 0 {
		t.Fatal("sample above the tightened bound must be rejected")
	}
}
