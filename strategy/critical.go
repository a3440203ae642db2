package strategy

import (
	"fmt"
	"math"

	"stat-arb-go/market"
	"stat-arb-go/order"
	"stat-arb-go/portfolio"
)

// Searcher 寻找临界价：距市场最近、下 1 单位限价单仍能严格提升绩效的价格。
// 再向场内推进一个 tick 则 delta <= 0。
type Searcher struct {
	model *portfolio.Model
	secs  map[string]market.Security
}

// NewSearcher 创建搜索器。
func NewSearcher(model *portfolio.Model, secs map[string]market.Security) *Searcher {
	return &Searcher{model: model, secs: secs}
}

// CriticalRef 返回临界单的关联标识。
func CriticalRef(marketID string, side order.Side) string {
	return fmt.Sprintf("crit_%s_%s", marketID, side)
}

// Critical 计算 (市场, 方向) 的临界单。prev 给出上一次的临界价时走局部爬坡
// （利用刷新间价格连续性，比全量二分便宜）；否则在 [min,max] 上二分。
// 两种模式在相同状态下必须返回同一价格。
func (s *Searcher) Critical(marketID string, side order.Side, h portfolio.Holdings, prev *order.Order) (order.Order, error) {
	sec, ok := s.secs[marketID]
	if !ok {
		return order.Order{}, order.ErrUnknownMarket
	}
	test := order.Order{
		Market: marketID,
		Side:   side,
		Kind:   order.Limit,
		Units:  1,
		Ref:    CriticalRef(marketID, side),
	}
	// 买方远离市场为降价，卖方为抬价
	away := -1
	if side == order.Sell {
		away = 1
	}
	if prev != nil {
		return s.climb(test, prev.Price, away, sec, h)
	}
	return s.bisect(test, away, sec, h)
}

func (s *Searcher) delta(o order.Order, h portfolio.Holdings) (float64, error) {
	return s.model.Delta([]order.Order{o}, h)
}

// climb 从上一临界价出发：先远离市场直到有利可图，再压向市场直到无利可图，
// 最后退回最后一个有利价。每个价格先求值再步进，步进不越出市场区间，
// 因此上一临界价恰在区间端点时同样成立。
func (s *Searcher) climb(test order.Order, from, away int, sec market.Security, h portfolio.Holdings) (order.Order, error) {
	test.Price = from
	for {
		d, err := s.delta(test, h)
		if err != nil {
			return order.Order{}, err
		}
		if d > 0 {
			break
		}
		next := test.Price + away
		if next < sec.MinPrice || next > sec.MaxPrice {
			break
		}
		test.Price = next
	}
	for {
		d, err := s.delta(test, h)
		if err != nil {
			return order.Order{}, err
		}
		if d <= 0 {
			test.Price += away
			break
		}
		next := test.Price - away
		if next < sec.MinPrice || next > sec.MaxPrice {
			break
		}
		test.Price = next
	}
	return clamp(test, sec), nil
}

// bisect 在 [min,max] 上二分。delta 恰为零时临界价可直接推断为中点偏
// 离市场一个 tick；否则收敛到宽度 1 后按方向取端点。
func (s *Searcher) bisect(test order.Order, away int, sec market.Security, h portfolio.Holdings) (order.Order, error) {
	lo, hi := sec.MinPrice, sec.MaxPrice
	buy := test.Side == order.Buy
	for hi-lo > 1 {
		test.Price = int(math.Round(float64(lo+hi) / 2))
		d, err := s.delta(test, h)
		if err != nil {
			return order.Order{}, err
		}
		switch {
		case d == 0:
			test.Price += away
			return clamp(test, sec), nil
		case (d > 0 && buy) || (d < 0 && !buy):
			lo = test.Price
		default:
			hi = test.Price
		}
	}
	if buy {
		test.Price = lo
	} else {
		test.Price = hi
	}
	return test, nil
}

func clamp(o order.Order, sec market.Security) order.Order {
	if o.Price < sec.MinPrice {
		o.Price = sec.MinPrice
	}
	if o.Price > sec.MaxPrice {
		o.Price = sec.MaxPrice
	}
	return o
}
