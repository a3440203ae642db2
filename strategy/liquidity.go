package strategy

import (
	"math"
	"sort"
	"time"

	"stat-arb-go/market"
	"stat-arb-go/order"
	"stat-arb-go/portfolio"
)

// LiquiditySelector 在目标市场买入缺现金时，扫描其他市场寻找一笔卖单，
// 使 {目标买, 候选卖} 组合的净绩效提升最大。卖单规模恰好补足现金缺口。
type LiquiditySelector struct {
	model      *portfolio.Model
	secs       map[string]market.Security
	vol        *market.Volatility
	confidence float64
	start      time.Time
	now        func() time.Time
}

// NewLiquiditySelector 创建选择器。confidence 为置信区间水平（默认 0.95）。
func NewLiquiditySelector(model *portfolio.Model, secs map[string]market.Security, vol *market.Volatility, confidence float64) *LiquiditySelector {
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	s := &LiquiditySelector{
		model:      model,
		secs:       secs,
		vol:        vol,
		confidence: confidence,
		now:        time.Now,
	}
	s.start = s.now()
	return s
}

// SetConfidence 热更新置信水平。
func (s *LiquiditySelector) SetConfidence(c float64) {
	if c > 0 && c < 1 {
		s.confidence = c
	}
}

// Offload 评估目标市场的机会型买入。bids/asks 为各市场当前最优他方报价，
// validate 为带跟踪绕过的入场校验。返回应立即下发的卖单；无合格候选或
// 现金充足时第二个返回值为 false。
//
// 置信区间的自由度随会话时长增长：观测越多，对报价的信任越强。
func (s *LiquiditySelector) Offload(targetID string, units int, bids, asks map[string]int, h portfolio.Holdings, validate func(order.Order) bool) (order.Order, bool) {
	targetSec, ok := s.secs[targetID]
	if !ok {
		return order.Order{}, false
	}
	askVol, ok := s.vol.StdDev(targetID, order.Sell)
	if !ok {
		return order.Order{}, false
	}
	df := int(s.now().Sub(s.start).Seconds())
	ask := market.TBound(float64(asks[targetID]), askVol, s.confidence, df, true)
	if ask < targetSec.MinPrice || ask > targetSec.MaxPrice {
		return order.Order{}, false
	}
	targetBuy := order.Order{
		Market: targetID,
		Side:   order.Buy,
		Kind:   order.Limit,
		Price:  ask,
		Units:  units,
		Ref:    "liq_buy_" + targetID,
	}
	shortfall := float64(ask*units) - h.AvailableCash
	if shortfall <= 0 {
		return order.Order{}, false
	}

	candidates := make([]string, 0, len(bids))
	for id := range bids {
		if id != targetID {
			candidates = append(candidates, id)
		}
	}
	sort.Strings(candidates)

	bestDelta := 0.0
	var bestSell order.Order
	found := false
	for _, id := range candidates {
		sec, ok := s.secs[id]
		if !ok || bids[id] <= sec.MinPrice {
			continue
		}
		// 候选市场自身的买方波动率
		bidVol, ok := s.vol.StdDev(id, order.Buy)
		if !ok {
			continue
		}
		bid := market.TBound(float64(bids[id]), bidVol, s.confidence, df, false)
		if bid <= 0 || bid < sec.MinPrice || bid > sec.MaxPrice {
			continue
		}
		sell := order.Order{
			Market: id,
			Side:   order.Sell,
			Kind:   order.Limit,
			Price:  bid,
			Units:  int(math.Ceil(shortfall / float64(bid))),
			Ref:    "liq_sell_" + id,
		}
		if !validate(sell) {
			continue
		}
		delta, err := s.model.Delta([]order.Order{targetBuy, sell}, h)
		if err != nil {
			continue
		}
		if delta > bestDelta {
			bestDelta = delta
			bestSell = sell
			found = true
		}
	}
	return bestSell, found
}
