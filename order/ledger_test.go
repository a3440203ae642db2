package order

import "testing"

type fakeFunds struct {
	cash  float64
	units map[string]int
}

func (f fakeFunds) AvailableCash() float64 { return f.cash }
func (f fakeFunds) AvailableUnits(m string) int {
	return f.units[m]
}

func newTestLedger() *Ledger {
	l := NewLedger(16)
	l.SetBounds("m1", Bounds{Min: 1, Max: 99})
	return l
}

func TestValidatePriceBounds(t *testing.T) {
	l := newTestLedger()
	funds := fakeFunds{cash: 1e6, units: map[string]int{"m1": 100}}
	// 价格越界的订单无论资金多充足都应被拒绝
	o := Order{Market: "m1", Side: Buy, Kind: Limit, Price: 100, Units: 1}
	if err := l.Validate(o, funds, false); err != ErrPriceOutOfBounds {
		t.Fatalf("expected ErrPriceOutOfBounds, got %v", err)
	}
	o.Price = 0
	if err := l.Validate(o, funds, false); err != ErrPriceOutOfBounds {
		t.Fatalf("expected ErrPriceOutOfBounds, got %v", err)
	}
	o.Price = 50
	if err := l.Validate(o, funds, false); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateUnknownMarket(t *testing.T) {
	l := newTestLedger()
	o := Order{Market: "nope", Side: Buy, Kind: Limit, Price: 50, Units: 1}
	if err := l.Validate(o, fakeFunds{cash: 100}, false); err != ErrUnknownMarket {
		t.Fatalf("expected ErrUnknownMarket, got %v", err)
	}
}

func TestValidateOccupiedSlot(t *testing.T) {
	l := newTestLedger()
	funds := fakeFunds{cash: 1000, units: map[string]int{"m1": 10}}
	o := Order{Market: "m1", Side: Buy, Kind: Limit, Price: 50, Units: 1, Ref: "a"}

	l.MarkPending(o)
	if err := l.Validate(o, funds, false); err != ErrSlotOccupied {
		t.Fatalf("expected ErrSlotOccupied for pending slot, got %v", err)
	}
	// bypass 只看价格与资金
	if err := l.Validate(o, funds, true); err != nil {
		t.Fatalf("expected bypass to pass, got %v", err)
	}

	l.OnAccepted(o)
	if err := l.Validate(o, funds, false); err != ErrSlotOccupied {
		t.Fatalf("expected ErrSlotOccupied for active slot, got %v", err)
	}
	// 撤单不检查活跃占用
	c := CancelOf(o)
	if err := l.Validate(c, funds, false); err != nil {
		t.Fatalf("cancel should validate against active slot, got %v", err)
	}
}

func TestValidateCapital(t *testing.T) {
	l := newTestLedger()
	buy := Order{Market: "m1", Side: Buy, Kind: Limit, Price: 50, Units: 3}
	if err := l.Validate(buy, fakeFunds{cash: 100}, false); err != ErrInsufficientCash {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}
	sell := Order{Market: "m1", Side: Sell, Kind: Limit, Price: 50, Units: 3}
	if err := l.Validate(sell, fakeFunds{units: map[string]int{"m1": 2}}, false); err != ErrInsufficientUnits {
		t.Fatalf("expected ErrInsufficientUnits, got %v", err)
	}
}

func TestOnAcceptedLifecycle(t *testing.T) {
	l := newTestLedger()
	o := Order{Market: "m1", Side: Buy, Kind: Limit, Price: 50, Units: 1, Ref: "a"}
	l.MarkPending(o)
	l.OnAccepted(o)
	if _, ok := l.Pending(SlotOf(o)); ok {
		t.Fatal("pending should be cleared on accept")
	}
	if _, ok := l.Active(SlotOf(o)); !ok {
		t.Fatal("limit order should become active on accept")
	}

	c := CancelOf(o)
	l.MarkPending(c)
	l.OnAccepted(c)
	if _, ok := l.Active(SlotOf(o)); ok {
		t.Fatal("cancel accept should clear the active slot")
	}
}

func TestOnRejectedClearsPending(t *testing.T) {
	l := newTestLedger()
	o := Order{Market: "m1", Side: Sell, Kind: Limit, Price: 60, Units: 1, Ref: "a"}
	l.MarkPending(o)
	l.OnRejected(o)
	if _, ok := l.Pending(SlotOf(o)); ok {
		t.Fatal("pending should be cleared on reject")
	}
}

func TestReconcileAgesAndExpires(t *testing.T) {
	l := NewLedger(3)
	l.SetBounds("m1", Bounds{Min: 1, Max: 99})
	o := Order{Market: "m1", Side: Buy, Kind: Limit, Price: 50, Units: 1, Ref: "a"}

	// 新 ref 计龄 1，存续 +1；超过 3 次刷新后标记过期
	for cycle := 1; cycle <= 3; cycle++ {
		if expired := l.Reconcile("m1", []Order{o}); len(expired) != 0 {
			t.Fatalf("cycle %d: unexpected expiry", cycle)
		}
	}
	expired := l.Reconcile("m1", []Order{o})
	if len(expired) != 1 || expired[0].Ref != "a" {
		t.Fatalf("expected order to expire on 4th cycle, got %v", expired)
	}
}

func TestReconcileNewRefResetsAge(t *testing.T) {
	l := NewLedger(3)
	l.SetBounds("m1", Bounds{Min: 1, Max: 99})
	a := Order{Market: "m1", Side: Buy, Kind: Limit, Price: 50, Units: 1, Ref: "a"}
	b := Order{Market: "m1", Side: Buy, Kind: Limit, Price: 51, Units: 1, Ref: "b"}

	l.Reconcile("m1", []Order{a})
	l.Reconcile("m1", []Order{a})
	// 同槽位换了新 ref：从 1 重新计龄
	l.Reconcile("m1", []Order{b})
	if expired := l.Reconcile("m1", []Order{b}); len(expired) != 0 {
		t.Fatalf("new ref should restart aging, got expiry %v", expired)
	}
}

func TestReconcileDropsVanishedOrders(t *testing.T) {
	l := newTestLedger()
	o := Order{Market: "m1", Side: Buy, Kind: Limit, Price: 50, Units: 1, Ref: "a"}
	l.Reconcile("m1", []Order{o})
	if _, ok := l.Active(SlotOf(o)); !ok {
		t.Fatal("order should be active after reconcile")
	}
	// 场内快照不再包含该单：本地状态随之清除
	l.Reconcile("m1", nil)
	if _, ok := l.Active(SlotOf(o)); ok {
		t.Fatal("vanished order should be dropped")
	}
}
