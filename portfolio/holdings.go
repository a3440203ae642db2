package portfolio

// Position 单市场持仓：总量与可用量。
type Position struct {
	Units     int
	Available int
}

// Holdings 现金与分市场持仓快照。只由场内确认的更新覆盖；
// 乐观状态通过 Projection 单独维护。
type Holdings struct {
	Cash          float64
	AvailableCash float64
	Positions     map[string]Position
}

// NewHoldings 创建空持仓。
func NewHoldings() Holdings {
	return Holdings{Positions: make(map[string]Position)}
}

// Clone 深拷贝，用于假设性订单评估。
func (h Holdings) Clone() Holdings {
	c := h
	c.Positions = make(map[string]Position, len(h.Positions))
	for k, v := range h.Positions {
		c.Positions[k] = v
	}
	return c
}

// Position 返回市场持仓，缺省为零。
func (h Holdings) Position(market string) Position {
	return h.Positions[market]
}

// Projection 是调度/账本组件独占的投影持仓：发送订单后立即扣减可用额，
// 每次权威快照到达时整体覆盖，绝不与权威副本共享底层存储。
type Projection struct {
	h Holdings
}

// NewProjection 创建空投影。
func NewProjection() *Projection {
	return &Projection{h: NewHoldings()}
}

// Reconcile 用权威快照覆盖投影。
func (p *Projection) Reconcile(h Holdings) {
	p.h = h.Clone()
}

// Snapshot 返回投影的一个副本，供评分与假设评估使用。
func (p *Projection) Snapshot() Holdings {
	return p.h.Clone()
}

// AvailableCash 实现 order.Funds。
func (p *Projection) AvailableCash() float64 {
	return p.h.AvailableCash
}

// AvailableUnits 实现 order.Funds。
func (p *Projection) AvailableUnits(market string) int {
	return p.h.Positions[market].Available
}

// DebitCash 发送买单后立即扣减可用现金。
func (p *Projection) DebitCash(amount float64) {
	p.h.AvailableCash -= amount
}

// DebitUnits 发送卖单后立即扣减可用持仓。
func (p *Projection) DebitUnits(market string, units int) {
	pos := p.h.Positions[market]
	pos.Available -= units
	p.h.Positions[market] = pos
}
