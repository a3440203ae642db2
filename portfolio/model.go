package portfolio

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"stat-arb-go/order"
)

// ErrDegenerateScore 表示总资产为零或非有限值，评分无定义；
// 调用方应视为"不做决策"而非传播数值错误。
var ErrDegenerateScore = errors.New("degenerate portfolio value")

// Model 用均值-方差口径为持仓状态打分。
// score = 期望价值 − riskPenalty × 组合方差。
type Model struct {
	payoff      *PayoffModel
	riskPenalty float64
}

// NewModel 创建绩效模型。
func NewModel(pm *PayoffModel, riskPenalty float64) *Model {
	return &Model{payoff: pm, riskPenalty: riskPenalty}
}

// SetRiskPenalty 热更新风险惩罚系数。
func (m *Model) SetRiskPenalty(p float64) {
	if p >= 0 {
		m.riskPenalty = p
	}
}

// Score 计算持仓绩效。总资产 = 可用现金 + Σ(期望收益 × 总持仓)。
// 组合方差为美元敞口权重对收益协方差矩阵的二次型 wᵗΣw。
func (m *Model) Score(h Holdings) (float64, error) {
	n := len(m.payoff.markets)
	exposures := make([]float64, n)
	total := h.AvailableCash
	for i, id := range m.payoff.markets {
		exposures[i] = m.payoff.expected[id] * float64(h.Position(id).Units)
		total += exposures[i]
	}
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, ErrDegenerateScore
	}
	w := mat.NewVecDense(n, nil)
	for i := range exposures {
		w.SetVec(i, exposures[i]/total)
	}
	variance := mat.Inner(w, m.payoff.cov, w)
	score := total - m.riskPenalty*variance
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, ErrDegenerateScore
	}
	return score, nil
}

// Delta 返回执行一组订单后的绩效变化。限价单按方向调整现金与持仓，
// 撤单对持仓无影响。
func (m *Model) Delta(orders []order.Order, h Holdings) (float64, error) {
	base, err := m.Score(h)
	if err != nil {
		return 0, err
	}
	next := h.Clone()
	for _, o := range orders {
		if o.Kind != order.Limit {
			continue
		}
		dir := float64(o.Side.Dir())
		next.Cash -= dir * o.Notional()
		next.AvailableCash -= dir * o.Notional()
		pos := next.Positions[o.Market]
		pos.Units += o.Side.Dir() * o.Units
		pos.Available += o.Side.Dir() * o.Units
		next.Positions[o.Market] = pos
	}
	after, err := m.Score(next)
	if err != nil {
		return 0, err
	}
	return after - base, nil
}
