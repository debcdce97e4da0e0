package gateway

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"quote-monitor-go/quote"
)

func TestParseOrderBookObjectLevels(t *testing.T) {
	raw := []byte(`{
		"guid": "qm-sber-1",
		"data": {
			"bids": [{"price": 250.5, "volume": 120}, {"price": 250.4, "volume": 80}],
			"asks": [{"price": 250.7, "volume": 95}],
			"ms_timestamp": 1690000000123
		}
	}`)

	receivedAt := time.Now()
	ev, err := ParseOrderBook(raw, "SBER", receivedAt)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ev.Symbol != "SBER" {
		t.Errorf("Symbol = %q", ev.Symbol)
	}
	if ev.Bid == nil || ev.Bid.Price != 250.5 || ev.Bid.Volume != 120 {
		t.Errorf("Bid = %+v, want best level 250.5/120", ev.Bid)
	}
	if ev.Ask == nil || ev.Ask.Price != 250.7 {
		t.Errorf("Ask = %+v, want 250.7", ev.Ask)
	}
	if !ev.ReceiveInstant.Equal(receivedAt) {
		t.Error("ReceiveInstant must be the caller's stamp")
	}

	num, ok := ev.RawTimestamp.(json.Number)
	if !ok {
		t.Fatalf("RawTimestamp = %T, want json.Number", ev.RawTimestamp)
	}
	if num.String() != "1690000000123" {
		t.Errorf("RawTimestamp = %s", num)
	}
}

func TestParseOrderBookArrayLevelsAndAliases(t *testing.T) {
	raw := []byte(`{
		"guid": "qm-gazp-1",
		"data": {
			"b": [["180.1", "500"]],
			"a": [["180.3", "200"]],
			"t": "2023-07-22T02:46:40Z"
		}
	}`)

	ev, err := ParseOrderBook(raw, "GAZP", time.Now())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ev.Bid == nil || ev.Bid.Price != 180.1 || ev.Bid.Volume != 500 {
		t.Errorf("Bid = %+v", ev.Bid)
	}
	if ev.Ask == nil || ev.Ask.Price != 180.3 {
		t.Errorf("Ask = %+v", ev.Ask)
	}
	if s, ok := ev.RawTimestamp.(string); !ok || s != "2023-07-22T02:46:40Z" {
		t.Errorf("RawTimestamp = %v (%T)", ev.RawTimestamp, ev.RawTimestamp)
	}
}

func TestParseOrderBookUnwrappedPayload(t *testing.T) {
	// Some sources push the book without the guid envelope
	raw := []byte(`{"bids": [{"price": 100.0, "qty": 10}], "timestamp": 1690000000}`)

	ev, err := ParseOrderBook(raw, "LKOH", time.Now())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ev.Bid == nil || ev.Bid.Price != 100.0 || ev.Bid.Volume != 10 {
		t.Errorf("Bid = %+v", ev.Bid)
	}
	if ev.Ask != nil {
		t.Errorf("Ask should be absent, got %+v", ev.Ask)
	}
}

func TestParseOrderBookOneSided(t *testing.T) {
	raw := []byte(`{"data": {"asks": [{"price": 99.5, "volume": 1}], "ms_timestamp": 1690000000500}}`)

	ev, err := ParseOrderBook(raw, "SBER", time.Now())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ev.Bid != nil {
		t.Errorf("Bid should be absent, got %+v", ev.Bid)
	}
	if ev.Ask == nil || ev.Ask.Price != 99.5 {
		t.Errorf("Ask = %+v", ev.Ask)
	}
}

func TestParseOrderBookControlMessage(t *testing.T) {
	raw := []byte(`{"requestGuid": "qm-sber-1", "httpCode": 200, "message": "Handled successfully"}`)

	_, err := ParseOrderBook(raw, "SBER", time.Now())
	if !errors.Is(err, ErrControlMessage) {
		t.Fatalf("expected ErrControlMessage, got %v", err)
	}
}

func TestParseOrderBookMalformed(t *testing.T) {
	if _, err := ParseOrderBook([]byte(`not json`), "SBER", time.Now()); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if _, err := ParseOrderBook([]byte(`[1,2,3]`), "SBER", time.Now()); err == nil {
		t.Fatal("expected error for non-object payload")
	}
}

func TestParseOrderBookEmptyLevels(t *testing.T) {
	raw := []byte(`{"data": {"bids": [], "asks": [], "ms_timestamp": 1690000000500}}`)

	ev, err := ParseOrderBook(raw, "SBER", time.Now())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ev.Bid != nil || ev.Ask != nil {
		t.Errorf("empty sides must map to nil, got %+v / %+v", ev.Bid, ev.Ask)
	}
	// Timestamp alone still makes it a book message for the ingest to judge
	if ev.RawTimestamp == nil {
		t.Error("timestamp should survive")
	}
}

func TestParseOrderBookFeedsIngest(t *testing.T) {
	// End-to-end through the core: parsed event must normalize cleanly
	raw := []byte(`{"data": {"bids": [{"price": 250.5, "volume": 10}], "asks": [{"price": 250.7, "volume": 5}], "ms_timestamp": 1690000000000}}`)

	receivedAt := time.UnixMilli(1690000000015).UTC()
	ev, err := ParseOrderBook(raw, "SBER", receivedAt)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	exch, err := quote.NormalizeTimestamp(ev.RawTimestamp)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got := quote.LatencyMs(ev.ReceiveInstant, exch); got != 15.0 {
		t.Fatalf("latency = %f, want 15.0", got)
	}
}
