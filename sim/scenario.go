package sim

import (
	"math"
	"math/rand"

	"stat-arb-go/market"
	"stat-arb-go/portfolio"
)

// Scenario 围绕各证券期望收益生成随机游走报价，驱动一次 dry run。
type Scenario struct {
	Securities []market.Security
	Cash       float64
	Steps      int
	Seed       int64
}

// Run 交替推送订单簿与持仓事件。
func (s Scenario) Run(v *Venue) {
	rng := rand.New(rand.NewSource(s.Seed))
	mids := make(map[string]int, len(s.Securities))
	for _, sec := range s.Securities {
		mid := 0.0
		for _, p := range sec.Payoffs {
			mid += p
		}
		mids[sec.ID] = clampPrice(int(math.Round(mid/float64(len(sec.Payoffs)))), sec)
	}

	h := portfolio.NewHoldings()
	h.Cash = s.Cash
	h.AvailableCash = s.Cash
	for _, sec := range s.Securities {
		h.Positions[sec.ID] = portfolio.Position{}
	}
	v.PushHoldings(h)

	for step := 0; step < s.Steps; step++ {
		for _, sec := range s.Securities {
			mid := clampPrice(mids[sec.ID]+rng.Intn(5)-2, sec)
			mids[sec.ID] = mid
			book := []market.BookEntry{
				{Side: "BUY", Price: clampPrice(mid-2, sec), Units: 1 + rng.Intn(3)},
				{Side: "SELL", Price: clampPrice(mid+2, sec), Units: 1 + rng.Intn(3)},
			}
			v.PushBook(sec.ID, book)
		}
		v.PushHoldings(h)
	}
}

func clampPrice(p int, sec market.Security) int {
	if p < sec.MinPrice {
		return sec.MinPrice
	}
	if p > sec.MaxPrice {
		return sec.MaxPrice
	}
	return p
}
