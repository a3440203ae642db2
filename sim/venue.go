package sim

import (
	"sync"

	"stat-arb-go/gateway"
	"stat-arb-go/market"
	"stat-arb-go/order"
	"stat-arb-go/portfolio"
)

// Venue 模拟场内（用于 dry run 与集成测试）：记录引擎发出的订单，
// 可选自动回执接受确认。回执是异步语义：在下一个推送事件之前送达，
// 绝不在 SendOrder 调用栈内回调引擎。
type Venue struct {
	mu          sync.Mutex
	handler     gateway.Handler
	sent        []order.Order
	pendingAcks []order.Order
	autoAccept  bool
}

// NewVenue 创建模拟场内。autoAccept 为 true 时每笔订单在下一事件前回执接受。
func NewVenue(autoAccept bool) *Venue {
	return &Venue{autoAccept: autoAccept}
}

// Bind 绑定事件处理器（引擎）。
func (v *Venue) Bind(h gateway.Handler) {
	v.handler = h
}

// SendOrder 实现 engine.Venue。
func (v *Venue) SendOrder(o order.Order) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sent = append(v.sent, o)
	if v.autoAccept {
		v.pendingAcks = append(v.pendingAcks, o)
	}
	return nil
}

// Sent 返回已发送订单的副本。
func (v *Venue) Sent() []order.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]order.Order, len(v.sent))
	copy(out, v.sent)
	return out
}

// SentCount 返回已发送订单数。
func (v *Venue) SentCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.sent)
}

// PushBook 向引擎推送一帧订单簿。
func (v *Venue) PushBook(marketID string, book []market.BookEntry) {
	v.flushAcks()
	if v.handler != nil {
		v.handler.OnOrderBook(book, marketID)
	}
}

// PushHoldings 向引擎推送一帧权威持仓。
func (v *Venue) PushHoldings(h portfolio.Holdings) {
	v.flushAcks()
	if v.handler != nil {
		v.handler.OnHoldings(h)
	}
}

// Reject 以给定原因回执拒绝。
func (v *Venue) Reject(reason string, o order.Order) {
	v.flushAcks()
	if v.handler != nil {
		v.handler.OnOrderRejected(reason, o)
	}
}

// FlushAcks 立即送达积压的接受回执。
func (v *Venue) FlushAcks() {
	v.flushAcks()
}

func (v *Venue) flushAcks() {
	v.mu.Lock()
	acks := v.pendingAcks
	v.pendingAcks = nil
	handler := v.handler
	v.mu.Unlock()
	if handler == nil {
		return
	}
	for _, o := range acks {
		handler.OnOrderAccepted(o)
	}
}
