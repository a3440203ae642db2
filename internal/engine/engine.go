package engine

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"stat-arb-go/infrastructure/logger"
	"stat-arb-go/market"
	"stat-arb-go/metrics"
	"stat-arb-go/order"
	"stat-arb-go/portfolio"
	"stat-arb-go/strategy"
)

// Venue 出站接口：提交限价/撤销订单，异步经回调确认。
type Venue interface {
	SendOrder(o order.Order) error
}

// Config 引擎参数。
type Config struct {
	Decay           float64 // 时间加权方差衰减
	Confidence      float64 // 流动性套利置信水平
	RefreshInterval int     // 活跃单存续的行情刷新次数
	DispatchRate    int     // 每秒最大下发数
	RiskPenalty     float64 // 风险惩罚系数
}

// DefaultConfig 返回默认参数。
func DefaultConfig() Config {
	return Config{
		Decay:           0.9,
		Confidence:      0.95,
		RefreshInterval: 16,
		DispatchRate:    4,
		RiskPenalty:     0.01,
	}
}

func (c Config) validate() error {
	if c.Decay <= 0 || c.Decay >= 1 {
		return errors.New("decay must be in (0,1)")
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return errors.New("confidence must be in (0,1)")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refreshInterval must be > 0")
	}
	if c.DispatchRate <= 1 {
		return errors.New("dispatchRate must be > 1")
	}
	if c.RiskPenalty < 0 {
		return errors.New("riskPenalty must be >= 0")
	}
	return nil
}

// Engine 统计套利决策引擎：响应场内事件流，维护临界单，
// 在现金不足时机会性地跨市场卖出换取流动性。
//
// 事件入口由单一互斥锁串行化；核心状态只经这一条路径变化。
type Engine struct {
	mu  sync.Mutex
	cfg Config
	log *logger.Logger
	met *metrics.Metrics

	secs      map[string]market.Security
	model     *portfolio.Model
	searcher  *strategy.Searcher
	liquidity *strategy.LiquiditySelector

	ledger   *order.Ledger
	dispatch *order.Dispatch
	proj     *portfolio.Projection
	vol      *market.Volatility

	bids map[string]int
	asks map[string]int
	crit map[order.Slot]order.Order

	lastTotalCash  float64
	lastTotalUnits map[string]int
	seenHoldings   bool
}

// New 组装引擎。secs 来自启动时的市场元数据，venue 为场内出站通道。
func New(cfg Config, secs []market.Security, venue Venue, log *logger.Logger, met *metrics.Metrics) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if venue == nil {
		return nil, errors.New("venue is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	pm, err := portfolio.NewPayoffModel(secs)
	if err != nil {
		return nil, fmt.Errorf("payoff model: %w", err)
	}
	model := portfolio.NewModel(pm, cfg.RiskPenalty)

	secMap := make(map[string]market.Security, len(secs))
	ledger := order.NewLedger(cfg.RefreshInterval)
	for _, sec := range secs {
		secMap[sec.ID] = sec
		ledger.SetBounds(sec.ID, order.Bounds{Min: sec.MinPrice, Max: sec.MaxPrice})
	}
	proj := portfolio.NewProjection()
	vol := market.NewVolatility(cfg.Decay)

	return &Engine{
		cfg:            cfg,
		log:            log,
		met:            met,
		secs:           secMap,
		model:          model,
		searcher:       strategy.NewSearcher(model, secMap),
		liquidity:      strategy.NewLiquiditySelector(model, secMap, vol, cfg.Confidence),
		ledger:         ledger,
		dispatch:       order.NewDispatch(ledger, proj, venue, cfg.DispatchRate),
		proj:           proj,
		vol:            vol,
		bids:           make(map[string]int),
		asks:           make(map[string]int),
		crit:           make(map[order.Slot]order.Order),
		lastTotalUnits: make(map[string]int),
	}, nil
}

// UpdateConfig 热更新可调参数；无效配置整体拒绝，保持现状。
// 下一次持仓刷新会按新参数重算临界单。
func (e *Engine) UpdateConfig(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.model.SetRiskPenalty(cfg.RiskPenalty)
	e.vol.SetDecay(cfg.Decay)
	e.liquidity.SetConfidence(cfg.Confidence)
	e.ledger.SetRefreshInterval(cfg.RefreshInterval)
	e.dispatch.SetRate(cfg.DispatchRate)
	e.log.Info("engine config updated",
		zap.Float64("decay", cfg.Decay),
		zap.Float64("confidence", cfg.Confidence),
		zap.Int("refreshInterval", cfg.RefreshInterval),
		zap.Int("dispatchRate", cfg.DispatchRate),
		zap.Float64("riskPenalty", cfg.RiskPenalty))
	return nil
}

// OnOrderBook 处理一个市场的全量订单簿：对账、老化、行情与波动率更新、
// 流动性管理，最后尝试挂出该市场的临界单。未知市场的快照跳过本周期。
func (e *Engine) OnOrderBook(book []market.BookEntry, marketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sec, ok := e.secs[marketID]
	if !ok {
		e.log.Warn("skipping snapshot for unknown market", zap.String("market", marketID))
		return
	}

	// 对账 + 老化：以场内上报的自有挂单为准重建活跃表
	expired := e.ledger.Reconcile(marketID, market.OwnOrders(book, marketID))
	for _, o := range expired {
		if err := e.dispatch.AdmitCancel(o); err == nil {
			e.log.LogOrder("refresh_cancel", o.Ref, zap.String("market", marketID), zap.Int("price", o.Price))
		}
	}

	// 每个观察周期下发一条撤单
	if c, ok := e.dispatch.DrainCancel(); ok {
		e.countCancel()
		e.log.LogOrder("cancel_sent", c.Ref, zap.String("market", c.Market))
	}

	bid, ask := market.Quotes(book, sec)
	e.vol.Observe(marketID, order.Buy, bid)
	e.vol.Observe(marketID, order.Sell, ask)
	e.bids[marketID] = bid
	e.asks[marketID] = ask

	e.enforceLiquidity(marketID)

	// 尝试挂出该市场两个方向的临界单；校验失败即静默丢弃
	for _, side := range []order.Side{order.Buy, order.Sell} {
		if c, ok := e.crit[order.Slot{Market: marketID, Side: side}]; ok {
			if err := e.dispatch.Admit(c); err == nil {
				e.log.LogOrder("critical_queued", c.Ref, zap.String("market", marketID), zap.Int("price", c.Price))
			} else {
				e.countDropped()
			}
		}
	}
	e.updateQueueGauge()
}

// OnHoldings 处理权威持仓快照：覆盖投影，总持仓变化时全量刷新临界单，
// 并按调度速率下发排队中的新单。
func (e *Engine) OnHoldings(h portfolio.Holdings) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h.Positions == nil {
		e.log.Warn("skipping malformed holdings snapshot")
		return
	}
	e.proj.Reconcile(h)

	if e.totalsChanged(h) {
		e.refreshAllCritical()
		if score, err := e.model.Score(e.proj.Snapshot()); err == nil {
			e.log.Info("performance", zap.Float64("score", score))
			if e.met != nil {
				e.met.Score.Set(score)
			}
		}
	}

	sent := e.dispatch.DrainSubmits()
	for _, o := range sent {
		e.countSent()
		e.log.LogOrder("order_sent", o.Ref,
			zap.String("market", o.Market),
			zap.String("side", string(o.Side)),
			zap.Int("price", o.Price),
			zap.Int("units", o.Units))
	}
	e.updateQueueGauge()
}

// OnOrderAccepted 场内接受回报：槽位状态转移。
func (e *Engine) OnOrderAccepted(o order.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.OnAccepted(o)
}

// OnOrderRejected 场内拒绝回报：清除在途状态，不自动重试；
// 下一次持仓/行情刷新会在仍有利时自然重新尝试。
func (e *Engine) OnOrderRejected(reason string, o order.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.OnRejected(o)
	if e.met != nil {
		e.met.OrdersRejected.Inc()
	}
	e.log.LogOrder("order_rejected", o.Ref,
		zap.String("market", o.Market),
		zap.String("reason", reason))
}

// OnMarketInfo 场内信息通告，无需反应。
func (e *Engine) OnMarketInfo(_ map[string]any) {}

// Score 返回当前投影持仓的绩效。
func (e *Engine) Score() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Score(e.proj.Snapshot())
}

// enforceLiquidity 在目标市场买入缺现金时跨市场卖出换取流动性。
// 中选卖单绕过槽位跟踪立即下发。
func (e *Engine) enforceLiquidity(marketID string) {
	h := e.proj.Snapshot()
	validate := func(o order.Order) bool {
		return e.ledger.Validate(o, e.proj, true) == nil
	}
	sell, ok := e.liquidity.Offload(marketID, 1, e.bids, e.asks, h, validate)
	if !ok {
		return
	}
	if err := e.dispatch.SendNow(sell); err != nil {
		e.log.Warn("liquidity sell failed", zap.String("market", sell.Market), zap.Error(err))
		return
	}
	e.countSent()
	e.log.LogLiquidity(sell.Market, sell.Price, sell.Units)
}

// refreshAllCritical 重算每个市场两个方向的临界单。价格变化时先撤掉
// 仍按旧价挂着的活跃单，再发布新的临界单。
func (e *Engine) refreshAllCritical() {
	h := e.proj.Snapshot()
	for id, sec := range e.secs {
		for _, side := range []order.Side{order.Buy, order.Sell} {
			slot := order.Slot{Market: id, Side: side}
			var prev *order.Order
			if c, ok := e.crit[slot]; ok {
				prev = &c
			}
			next, err := e.searcher.Critical(id, side, h, prev)
			if err != nil {
				// 退化评分等情形：本轮不做决策
				continue
			}
			if prev != nil && prev.Price != next.Price {
				if active, ok := e.ledger.Active(slot); ok {
					if err := e.dispatch.AdmitCancel(active); err == nil {
						e.log.LogOrder("critical_price_moved", active.Ref,
							zap.String("market", id),
							zap.Int("old", prev.Price),
							zap.Int("new", next.Price))
					}
				}
				e.log.LogDecision(sec.Label, string(side), next.Price)
			}
			e.crit[slot] = next
		}
	}
}

// totalsChanged 比较总现金与总持仓是否发生变化（忽略可用额波动）。
func (e *Engine) totalsChanged(h portfolio.Holdings) bool {
	changed := !e.seenHoldings || h.Cash != e.lastTotalCash
	if !changed {
		if len(h.Positions) != len(e.lastTotalUnits) {
			changed = true
		} else {
			for id, pos := range h.Positions {
				if e.lastTotalUnits[id] != pos.Units {
					changed = true
					break
				}
			}
		}
	}
	if changed {
		e.seenHoldings = true
		e.lastTotalCash = h.Cash
		e.lastTotalUnits = make(map[string]int, len(h.Positions))
		for id, pos := range h.Positions {
			e.lastTotalUnits[id] = pos.Units
		}
	}
	return changed
}

func (e *Engine) countSent() {
	if e.met != nil {
		e.met.OrdersSent.Inc()
	}
}

func (e *Engine) countCancel() {
	if e.met != nil {
		e.met.Cancels.Inc()
	}
}

func (e *Engine) countDropped() {
	if e.met != nil {
		e.met.AdmissionsDropped.Inc()
	}
}

func (e *Engine) updateQueueGauge() {
	if e.met == nil {
		return
	}
	submits, cancels := e.dispatch.QueueDepth()
	e.met.QueueDepth.Set(float64(submits + cancels))
}
