package order

import "fmt"

// Side 订单方向。
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Dir 返回方向符号：买 +1，卖 -1（用于现金/持仓增减）。
func (s Side) Dir() int {
	if s == Buy {
		return 1
	}
	return -1
}

// Kind 订单类型：限价单或撤单。
type Kind string

const (
	Limit  Kind = "LIMIT"
	Cancel Kind = "CANCEL"
)

// Order 是一个值对象；发送后由 Ref 关联场内回报。
type Order struct {
	Market string
	Side   Side
	Kind   Kind
	Price  int
	Units  int
	Ref    string
}

// Notional 订单名义金额。
func (o Order) Notional() float64 {
	return float64(o.Price) * float64(o.Units)
}

// CancelOf 由现有订单派生撤单指令，沿用原 Ref 加后缀。
func CancelOf(o Order) Order {
	c := o
	c.Kind = Cancel
	c.Ref = o.Ref + "_cancel"
	return c
}

// Slot 是 (市场, 方向) 组合键；每个 slot 至多一个活跃单和一个在途单。
type Slot struct {
	Market string
	Side   Side
}

func (s Slot) String() string {
	return fmt.Sprintf("%s/%s", s.Market, s.Side)
}

// SlotOf 返回订单所属 slot。
func SlotOf(o Order) Slot {
	return Slot{Market: o.Market, Side: o.Side}
}
