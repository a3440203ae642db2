package sim

import (
	"testing"

	"stat-arb-go/market"
	"stat-arb-go/order"
	"stat-arb-go/portfolio"
)

type recordingHandler struct {
	events []string
}

func (h *recordingHandler) OnOrderBook(book []market.BookEntry, marketID string) {
	h.events = append(h.events, "book:"+marketID)
}

func (h *recordingHandler) OnHoldings(portfolio.Holdings) {
	h.events = append(h.events, "holdings")
}

func (h *recordingHandler) OnOrderAccepted(o order.Order) {
	h.events = append(h.events, "accepted:"+o.Ref)
}

func (h *recordingHandler) OnOrderRejected(reason string, o order.Order) {
	h.events = append(h.events, "rejected:"+o.Ref)
}

func (h *recordingHandler) OnMarketInfo(map[string]any) {}

func TestVenueAcksDeliveredBeforeNextEvent(t *testing.T) {
	v := NewVenue(true)
	h := &recordingHandler{}
	v.Bind(h)

	o := order.Order{Market: "m1", Side: order.Buy, Kind: order.Limit, Price: 40, Units: 1, Ref: "a"}
	if err := v.SendOrder(o); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(h.events) != 0 {
		t.Fatalf("ack delivered synchronously: %v", h.events)
	}

	v.PushBook("m1", nil)
	want := []string{"accepted:a", "book:m1"}
	if len(h.events) != len(want) {
		t.Fatalf("unexpected events: %v", h.events)
	}
	for i, e := range want {
		if h.events[i] != e {
			t.Fatalf("event %d: got %s, want %s", i, h.events[i], e)
		}
	}
}

func TestVenueNoAutoAccept(t *testing.T) {
	v := NewVenue(false)
	h := &recordingHandler{}
	v.Bind(h)

	o := order.Order{Market: "m1", Side: order.Sell, Kind: order.Limit, Price: 60, Units: 1, Ref: "b"}
	if err := v.SendOrder(o); err != nil {
		t.Fatalf("send: %v", err)
	}
	v.FlushAcks()
	if len(h.events) != 0 {
		t.Fatalf("unexpected ack: %v", h.events)
	}
	if v.SentCount() != 1 {
		t.Fatalf("sent count: %d", v.SentCount())
	}

	v.Reject("no funds", o)
	if len(h.events) != 1 || h.events[0] != "rejected:b" {
		t.Fatalf("unexpected events: %v", h.events)
	}
}

func TestScenarioDrivesHandler(t *testing.T) {
	sec, err := market.NewSecurity("m1", "A", "100,0", 1, 99)
	if err != nil {
		t.Fatalf("security: %v", err)
	}
	v := NewVenue(true)
	h := &recordingHandler{}
	v.Bind(h)

	Scenario{Securities: []market.Security{sec}, Cash: 500, Steps: 3, Seed: 7}.Run(v)

	var books, holdings int
	for _, e := range h.events {
		switch e {
		case "book:m1":
			books++
		case "holdings":
			holdings++
		}
	}
	if books != 3 {
		t.Fatalf("book events: %d", books)
	}
	if holdings != 4 {
		t.Fatalf("holdings events: %d", holdings)
	}
}
