package order

// Funds 是校验时使用的资金视图，由持仓投影实现。
type Funds interface {
	AvailableCash() float64
	AvailableUnits(market string) int
}

// Bounds 市场的可接受价格区间。
type Bounds struct {
	Min int
	Max int
}

// Ledger 按 (市场, 方向) 槽位跟踪活跃单与在途单，并负责订单老化。
// 不变式：除非显式绕过跟踪，一个槽位同时至多一个活跃单、一个在途单。
type Ledger struct {
	bounds  map[string]Bounds
	active  map[Slot]Order
	pending map[Slot]Order
	age     map[Slot]int

	refreshInterval int
}

// NewLedger 创建账本。refreshInterval 为活跃单允许存续的行情刷新次数。
func NewLedger(refreshInterval int) *Ledger {
	if refreshInterval <= 0 {
		refreshInterval = 16
	}
	return &Ledger{
		bounds:          make(map[string]Bounds),
		active:          make(map[Slot]Order),
		pending:         make(map[Slot]Order),
		age:             make(map[Slot]int),
		refreshInterval: refreshInterval,
	}
}

// SetRefreshInterval 热更新老化阈值；已有年龄在下次对账时按新阈值判定。
func (l *Ledger) SetRefreshInterval(n int) {
	if n > 0 {
		l.refreshInterval = n
	}
}

// SetBounds 注册市场的价格区间；校验之前必须注册。
func (l *Ledger) SetBounds(market string, b Bounds) {
	l.bounds[market] = b
}

// Validate 检查订单是否可发送：价格区间、槽位占用、资金充足。
// bypass 为 true 时跳过槽位占用检查（用于即发即忘的流动性卖单）。
// 返回 nil 表示通过，否则返回具名错误。
func (l *Ledger) Validate(o Order, funds Funds, bypass bool) error {
	b, ok := l.bounds[o.Market]
	if !ok {
		return ErrUnknownMarket
	}
	if o.Price < b.Min || o.Price > b.Max {
		return ErrPriceOutOfBounds
	}
	slot := SlotOf(o)
	if !bypass {
		if _, occupied := l.pending[slot]; occupied {
			return ErrSlotOccupied
		}
	}
	if o.Kind == Limit {
		if !bypass {
			if _, occupied := l.active[slot]; occupied {
				return ErrSlotOccupied
			}
		}
		switch o.Side {
		case Buy:
			if funds.AvailableCash() < o.Notional() {
				return ErrInsufficientCash
			}
		case Sell:
			if funds.AvailableUnits(o.Market) < o.Units {
				return ErrInsufficientUnits
			}
		}
	}
	return nil
}

// Active 返回槽位上的活跃单。
func (l *Ledger) Active(slot Slot) (Order, bool) {
	o, ok := l.active[slot]
	return o, ok
}

// Pending 返回槽位上的在途单。
func (l *Ledger) Pending(slot Slot) (Order, bool) {
	o, ok := l.pending[slot]
	return o, ok
}

// MarkPending 将订单登记为在途。
func (l *Ledger) MarkPending(o Order) {
	l.pending[SlotOf(o)] = o
}

// OnAccepted 处理场内接受回报：撤单清空槽位，限价单转为活跃。
func (l *Ledger) OnAccepted(o Order) {
	slot := SlotOf(o)
	l.age[slot] = 0
	if o.Kind == Cancel {
		delete(l.active, slot)
	} else {
		l.active[slot] = o
	}
	delete(l.pending, slot)
}

// OnRejected 处理场内拒绝回报：仅清除在途状态，不做重试。
func (l *Ledger) OnRejected(o Order) {
	delete(l.pending, SlotOf(o))
}

// Reconcile 用场内上报的自有挂单重建该市场的活跃表，并推进订单年龄。
// 新出现的 ref 年龄记 1，存续订单年龄 +1。返回年龄超限、应予撤销的订单。
// 以场内快照为准，可纠正本地状态漂移。
func (l *Ledger) Reconcile(market string, own []Order) []Order {
	prevActive := make(map[Side]Order)
	prevAge := make(map[Side]int)
	for _, side := range []Side{Buy, Sell} {
		slot := Slot{Market: market, Side: side}
		if o, ok := l.active[slot]; ok {
			prevActive[side] = o
			prevAge[side] = l.age[slot]
		}
		delete(l.active, slot)
		l.age[slot] = 0
	}

	var expired []Order
	for _, o := range own {
		slot := SlotOf(o)
		l.active[slot] = o
		if prev, ok := prevActive[o.Side]; ok && prev.Ref == o.Ref {
			l.age[slot] = prevAge[o.Side] + 1
		} else {
			// 此处假设每个挂单的 ref 唯一；同价堆叠单会被当作新单重新计龄
			l.age[slot] = 1
		}
		if l.age[slot] > l.refreshInterval {
			expired = append(expired, o)
		}
	}
	return expired
}
