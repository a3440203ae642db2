package market

import (
	"errors"

	"stat-arb-go/order"
)

// ErrMalformedBook 标记无法解析的行情快照；调用方跳过本周期。
var ErrMalformedBook = errors.New("malformed order book snapshot")

// BookEntry 场内上报的一条挂单，含自有标记。
type BookEntry struct {
	Side  order.Side
	Price int
	Units int
	Ref   string
	Mine  bool
}

// Quotes 从全量订单簿提取他方最优买卖价。
// 无外部买单时 bid 取市场下限，无外部卖单时 ask 取市场上限。
func Quotes(book []BookEntry, sec Security) (bid, ask int) {
	bid = sec.MinPrice
	ask = sec.MaxPrice
	for _, e := range book {
		if e.Mine {
			continue
		}
		switch e.Side {
		case order.Buy:
			if e.Price > bid {
				bid = e.Price
			}
		case order.Sell:
			if e.Price < ask {
				ask = e.Price
			}
		}
	}
	return bid, ask
}

// OwnOrders 返回快照中的自有挂单，供账本对账使用。
func OwnOrders(book []BookEntry, marketID string) []order.Order {
	var own []order.Order
	for _, e := range book {
		if !e.Mine {
			continue
		}
		own = append(own, order.Order{
			Market: marketID,
			Side:   e.Side,
			Kind:   order.Limit,
			Price:  e.Price,
			Units:  e.Units,
			Ref:    e.Ref,
		})
	}
	return own
}
