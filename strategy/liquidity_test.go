package strategy

import (
	"testing"
	"time"

	"stat-arb-go/market"
	"stat-arb-go/order"
	"stat-arb-go/portfolio"
)

func liquidityFixture(t *testing.T) (*LiquiditySelector, *market.Volatility, portfolio.Holdings) {
	t.Helper()
	mkSec := func(id, desc string) market.Security {
		sec, err := market.NewSecurity(id, id, desc, 1, 99)
		if err != nil {
			t.Fatalf("security %s: %v", id, err)
		}
		return sec
	}
	secA := mkSec("m1", "100,0")
	secB := mkSec("m2", "0,100")
	secC := mkSec("m3", "0,100")
	secs := map[string]market.Security{"m1": secA, "m2": secB, "m3": secC}
	pm, err := portfolio.NewPayoffModel([]market.Security{secA, secB, secC})
	if err != nil {
		t.Fatalf("payoff model: %v", err)
	}
	model := portfolio.NewModel(pm, 0.01)
	vol := market.NewVolatility(0.9)
	sel := NewLiquiditySelector(model, secs, vol, 0.95)
	base := time.Now()
	sel.start = base
	sel.now = func() time.Time { return base.Add(120 * time.Second) }

	h := portfolio.NewHoldings()
	h.Cash = 10
	h.AvailableCash = 10
	h.Positions["m2"] = portfolio.Position{Units: 5, Available: 5}
	h.Positions["m3"] = portfolio.Position{Units: 5, Available: 5}
	return sel, vol, h
}

func seedVol(vol *market.Volatility, id string, side order.Side, prices ...int) {
	for _, p := range prices {
		vol.Observe(id, side, p)
	}
}

func acceptAll(order.Order) bool { return true }

func TestOffloadNoVolatilityData(t *testing.T) {
	sel, _, h := liquidityFixture(t)
	asks := map[string]int{"m1": 40}
	bids := map[string]int{"m2": 60}
	if _, ok := sel.Offload("m1", 1, bids, asks, h, acceptAll); ok {
		t.Fatal("expected no sell without volatility data")
	}
}

func TestOffloadNoShortfall(t *testing.T) {
	sel, vol, h := liquidityFixture(t)
	seedVol(vol, "m1", order.Sell, 40, 41)
	seedVol(vol, "m2", order.Buy, 60, 61)
	h.AvailableCash = 1000
	asks := map[string]int{"m1": 40}
	bids := map[string]int{"m2": 60}
	if _, ok := sel.Offload("m1", 1, bids, asks, h, acceptAll); ok {
		t.Fatal("expected no sell when cash is sufficient")
	}
}

func TestOffloadPicksHighestDeltaCandidate(t *testing.T) {
	sel, vol, h := liquidityFixture(t)
	seedVol(vol, "m1", order.Sell, 40, 41)
	seedVol(vol, "m2", order.Buy, 60, 61)
	seedVol(vol, "m3", order.Buy, 52, 53)
	asks := map[string]int{"m1": 40}
	bids := map[string]int{"m1": 38, "m2": 60, "m3": 52}

	sell, ok := sel.Offload("m1", 1, bids, asks, h, acceptAll)
	if !ok {
		t.Fatal("expected a liquidity sell")
	}
	if sell.Market != "m2" {
		t.Fatalf("expected sell in m2 (higher bid, higher delta), got %s", sell.Market)
	}
	if sell.Side != order.Sell || sell.Kind != order.Limit {
		t.Fatalf("unexpected order shape: %+v", sell)
	}
	if sell.Units < 1 {
		t.Fatalf("sell must cover the shortfall, got %d units", sell.Units)
	}
}

func TestOffloadRejectsNonPositiveDelta(t *testing.T) {
	sel, vol, h := liquidityFixture(t)
	seedVol(vol, "m1", order.Sell, 40, 41)
	seedVol(vol, "m2", order.Buy, 20, 21)
	asks := map[string]int{"m1": 40}
	// 候选报价远低于其期望收益：{买,卖} 组合净变化为负，不得成交
	bids := map[string]int{"m2": 20}

	if sell, ok := sel.Offload("m1", 1, bids, asks, h, acceptAll); ok {
		t.Fatalf("expected no sell when the combined delta is negative, got %+v", sell)
	}
}

func TestOffloadSkipsInvalidCandidates(t *testing.T) {
	sel, vol, h := liquidityFixture(t)
	seedVol(vol, "m1", order.Sell, 40, 41)
	seedVol(vol, "m2", order.Buy, 60, 61)
	asks := map[string]int{"m1": 40}
	bids := map[string]int{"m2": 60}

	rejectAll := func(order.Order) bool { return false }
	if _, ok := sel.Offload("m1", 1, bids, asks, h, rejectAll); ok {
		t.Fatal("expected no sell when validation rejects all candidates")
	}
}

func TestOffloadIgnoresBidsAtFloor(t *testing.T) {
	sel, vol, h := liquidityFixture(t)
	seedVol(vol, "m1", order.Sell, 40, 41)
	seedVol(vol, "m2", order.Buy, 1, 2)
	asks := map[string]int{"m1": 40}
	bids := map[string]int{"m2": 1} // at market floor

	if _, ok := sel.Offload("m1", 1, bids, asks, h, acceptAll); ok {
		t.Fatal("expected no sell when the only bid sits at the floor")
	}
}
