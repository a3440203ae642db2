package order

import "time"

// Projection 是调度器独占的本地持仓投影：发送成功后立即扣减，
// 在下一次权威快照到达前保持同一 tick 内校验的一致性。
type Projection interface {
	Funds
	DebitCash(amount float64)
	DebitUnits(market string, units int)
}

// Sender 将订单发往场内，异步确认。
type Sender interface {
	SendOrder(o Order) error
}

// Dispatch 对出站动作限速排序：撤单队列优先，新单按滑动一秒窗口下发。
// 窗口计数替代了事件处理线程内的阻塞等待，对外契约不变：任意一秒内
// 至多 rate 单，单个持仓 tick 内至多 rate-1 单。
type Dispatch struct {
	ledger *Ledger
	proj   Projection
	sender Sender

	cancels []Order
	submits []Order

	rate   int
	sentAt []time.Time
	now    func() time.Time
}

// NewDispatch 创建调度器。rate 为每秒最大下发数。
func NewDispatch(ledger *Ledger, proj Projection, sender Sender, rate int) *Dispatch {
	if rate <= 1 {
		rate = 4
	}
	return &Dispatch{
		ledger: ledger,
		proj:   proj,
		sender: sender,
		rate:   rate,
		now:    time.Now,
	}
}

// SetRate 热更新每秒最大下发数；窗口内已有的发送记录照常计数。
func (d *Dispatch) SetRate(rate int) {
	if rate > 1 {
		d.rate = rate
	}
}

// Admit 校验后将新单登记为在途并入队；校验失败的订单静默丢弃。
// 返回 nil 表示已入队。
func (d *Dispatch) Admit(o Order) error {
	if err := d.ledger.Validate(o, d.proj, false); err != nil {
		return err
	}
	d.ledger.MarkPending(o)
	d.submits = append(d.submits, o)
	return nil
}

// AdmitCancel 为活跃单派生撤单并入撤单队列。
func (d *Dispatch) AdmitCancel(o Order) error {
	c := CancelOf(o)
	if err := d.ledger.Validate(c, d.proj, false); err != nil {
		return err
	}
	d.ledger.MarkPending(c)
	d.cancels = append(d.cancels, c)
	return nil
}

// SendNow 绕过槽位跟踪直接下发（机会型流动性卖单）。
// 发送成功后立即扣减投影。
func (d *Dispatch) SendNow(o Order) error {
	if err := d.ledger.Validate(o, d.proj, true); err != nil {
		return err
	}
	if err := d.sender.SendOrder(o); err != nil {
		return err
	}
	// 计入发送窗口：机会型卖单同样占用每秒额度
	d.sentAt = append(d.sentAt, d.now())
	d.debit(o)
	return nil
}

// DrainCancel 下发一条撤单；每个行情观察周期调用一次。
func (d *Dispatch) DrainCancel() (Order, bool) {
	if len(d.cancels) == 0 {
		return Order{}, false
	}
	c := d.cancels[0]
	if err := d.sender.SendOrder(c); err != nil {
		return Order{}, false
	}
	d.cancels = d.cancels[1:]
	return c, true
}

// DrainSubmits 在一次持仓更新 tick 内下发至多 rate-1 条新单。
// 每次扫描队列，发送首个在发送时点仍通过校验的条目；未通过的留队等待下一 tick。
// 返回本次实际发出的订单。
func (d *Dispatch) DrainSubmits() []Order {
	now := d.now()
	var sent []Order
	for i := 0; i < d.rate-1; i++ {
		if !d.allowSend(now) {
			break
		}
		o, ok := d.takeFirstValid()
		if !ok {
			break
		}
		if err := d.sender.SendOrder(o); err != nil {
			// 发送失败：留队重试，本 tick 不再尝试
			d.submits = append([]Order{o}, d.submits...)
			break
		}
		d.sentAt = append(d.sentAt, now)
		d.debit(o)
		sent = append(sent, o)
	}
	return sent
}

// QueueDepth 返回当前排队的新单与撤单数。
func (d *Dispatch) QueueDepth() (submits, cancels int) {
	return len(d.submits), len(d.cancels)
}

// allowSend 裁剪滑动窗口后检查过去一秒内的发送数是否仍低于速率上限。
// 相邻 tick 落在同一秒内时，后一个 tick 只分到窗口剩余的额度。
func (d *Dispatch) allowSend(now time.Time) bool {
	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(d.sentAt) && !d.sentAt[i].After(cutoff) {
		i++
	}
	d.sentAt = d.sentAt[i:]
	return len(d.sentAt) < d.rate
}

// takeFirstValid 取出队列中首个仍然有效的订单。入队后状态可能已变化，
// 因此发送时点需要重新校验（跳过槽位检查，仅看价格与资金）。
func (d *Dispatch) takeFirstValid() (Order, bool) {
	for i, o := range d.submits {
		if d.ledger.Validate(o, d.proj, true) == nil {
			d.submits = append(d.submits[:i], d.submits[i+1:]...)
			return o, true
		}
	}
	return Order{}, false
}

func (d *Dispatch) debit(o Order) {
	if o.Kind != Limit {
		return
	}
	switch o.Side {
	case Buy:
		d.proj.DebitCash(o.Notional())
	case Sell:
		d.proj.DebitUnits(o.Market, o.Units)
	}
}
