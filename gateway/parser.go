package gateway

import (
	"encoding/json"
	"fmt"

	"stat-arb-go/market"
	"stat-arb-go/order"
	"stat-arb-go/portfolio"
)

// Envelope 场内消息外壳。
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// 消息类型。
const (
	MsgMarkets       = "markets"
	MsgOrderBook     = "order_book"
	MsgHoldings      = "holdings"
	MsgOrderAccepted = "order_accepted"
	MsgOrderRejected = "order_rejected"
	MsgMarketInfo    = "market_info"
)

type wireOrder struct {
	Market string `json:"market"`
	Side   string `json:"side"`
	Kind   string `json:"kind"`
	Price  int    `json:"price"`
	Units  int    `json:"units"`
	Ref    string `json:"ref"`
	Mine   bool   `json:"mine"`
}

func (w wireOrder) toOrder() order.Order {
	return order.Order{
		Market: w.Market,
		Side:   order.Side(w.Side),
		Kind:   order.Kind(w.Kind),
		Price:  w.Price,
		Units:  w.Units,
		Ref:    w.Ref,
	}
}

type wireMarket struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Minimum     int    `json:"minimum"`
	Maximum     int    `json:"maximum"`
}

type bookMsg struct {
	Market string      `json:"market"`
	Orders []wireOrder `json:"orders"`
}

type holdingsMsg struct {
	Cash struct {
		Cash          float64 `json:"cash"`
		AvailableCash float64 `json:"available_cash"`
	} `json:"cash"`
	Markets map[string]struct {
		Units          int `json:"units"`
		AvailableUnits int `json:"available_units"`
	} `json:"markets"`
}

type rejectMsg struct {
	Reason string    `json:"reason"`
	Order  wireOrder `json:"order"`
}

// ParseEnvelope 解出消息外壳。
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("envelope missing type")
	}
	return env, nil
}

// ParseMarkets 解析启动时的市场元数据。
func ParseMarkets(data json.RawMessage) ([]market.Security, error) {
	var wires []wireMarket
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("parse markets: %w", err)
	}
	secs := make([]market.Security, 0, len(wires))
	for _, w := range wires {
		sec, err := market.NewSecurity(w.ID, w.Label, w.Description, w.Minimum, w.Maximum)
		if err != nil {
			return nil, err
		}
		secs = append(secs, sec)
	}
	return secs, nil
}

// ParseOrderBook 解析全量订单簿消息。
func ParseOrderBook(data json.RawMessage) (string, []market.BookEntry, error) {
	var msg bookMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", nil, fmt.Errorf("%w: %v", market.ErrMalformedBook, err)
	}
	if msg.Market == "" {
		return "", nil, fmt.Errorf("%w: missing market id", market.ErrMalformedBook)
	}
	entries := make([]market.BookEntry, 0, len(msg.Orders))
	for _, w := range msg.Orders {
		side := order.Side(w.Side)
		if side != order.Buy && side != order.Sell {
			return "", nil, fmt.Errorf("%w: side %q", market.ErrMalformedBook, w.Side)
		}
		entries = append(entries, market.BookEntry{
			Side:  side,
			Price: w.Price,
			Units: w.Units,
			Ref:   w.Ref,
			Mine:  w.Mine,
		})
	}
	return msg.Market, entries, nil
}

// ParseHoldings 解析权威持仓快照。
func ParseHoldings(data json.RawMessage) (portfolio.Holdings, error) {
	var msg holdingsMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return portfolio.Holdings{}, fmt.Errorf("parse holdings: %w", err)
	}
	h := portfolio.NewHoldings()
	h.Cash = msg.Cash.Cash
	h.AvailableCash = msg.Cash.AvailableCash
	for id, m := range msg.Markets {
		h.Positions[id] = portfolio.Position{Units: m.Units, Available: m.AvailableUnits}
	}
	return h, nil
}

// ParseAccepted 解析接受回报。
func ParseAccepted(data json.RawMessage) (order.Order, error) {
	var w wireOrder
	if err := json.Unmarshal(data, &w); err != nil {
		return order.Order{}, fmt.Errorf("parse accepted: %w", err)
	}
	return w.toOrder(), nil
}

// ParseRejected 解析拒绝回报。
func ParseRejected(data json.RawMessage) (string, order.Order, error) {
	var msg rejectMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", order.Order{}, fmt.Errorf("parse rejected: %w", err)
	}
	return msg.Reason, msg.Order.toOrder(), nil
}
