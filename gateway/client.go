package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stat-arb-go/infrastructure/logger"
	"stat-arb-go/market"
	"stat-arb-go/order"
	"stat-arb-go/portfolio"
)

// Handler 接收场内事件；由决策引擎实现。
type Handler interface {
	OnOrderBook(book []market.BookEntry, marketID string)
	OnHoldings(h portfolio.Holdings)
	OnOrderAccepted(o order.Order)
	OnOrderRejected(reason string, o order.Order)
	OnMarketInfo(info map[string]any)
}

// Client 场内 websocket 会话：入站事件转发给 Handler，
// 出站订单经限速序列化发送。
type Client struct {
	conn    *websocket.Conn
	limiter RateLimiter
	log     *logger.Logger
	handler Handler
	writeMu sync.Mutex
}

// Dial 建立场内连接。
func Dial(url string, limiter RateLimiter, log *logger.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial venue: %w", err)
	}
	return &Client{conn: conn, limiter: limiter, log: log}, nil
}

// Authenticate 发送登录帧；场内在认证通过后才推送市场元数据。
func (c *Client) Authenticate(account, password string) error {
	payload, err := json.Marshal(map[string]any{
		"type": "auth",
		"data": map[string]string{
			"account":  account,
			"password": password,
		},
	})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// SetHandler 绑定事件处理器；必须在 Run 之前调用。
func (c *Client) SetHandler(h Handler) {
	c.handler = h
}

// AwaitMarkets 阻塞读取直到收到市场元数据消息，用于启动时构建证券表。
func (c *Client) AwaitMarkets(ctx context.Context) ([]market.Security, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read markets: %w", err)
		}
		env, err := ParseEnvelope(raw)
		if err != nil || env.Type != MsgMarkets {
			continue
		}
		return ParseMarkets(env.Data)
	}
}

// Run 读循环：解析入站帧并串行转发。解析失败的帧记录后跳过。
func (c *Client) Run(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("handler not set")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("venue read: %w", err)
		}
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		c.log.LogError(err)
		return
	}
	switch env.Type {
	case MsgOrderBook:
		marketID, book, err := ParseOrderBook(env.Data)
		if err != nil {
			c.log.LogError(err)
			return
		}
		c.handler.OnOrderBook(book, marketID)
	case MsgHoldings:
		h, err := ParseHoldings(env.Data)
		if err != nil {
			c.log.LogError(err)
			return
		}
		c.handler.OnHoldings(h)
	case MsgOrderAccepted:
		o, err := ParseAccepted(env.Data)
		if err != nil {
			c.log.LogError(err)
			return
		}
		c.handler.OnOrderAccepted(o)
	case MsgOrderRejected:
		reason, o, err := ParseRejected(env.Data)
		if err != nil {
			c.log.LogError(err)
			return
		}
		c.handler.OnOrderRejected(reason, o)
	case MsgMarketInfo:
		var info map[string]any
		if err := json.Unmarshal(env.Data, &info); err != nil {
			c.log.LogError(err)
			return
		}
		c.handler.OnMarketInfo(info)
	default:
		c.log.Warn("unknown venue message", zap.String("type", env.Type))
	}
}

// SendOrder 实现 engine.Venue：限速后以 JSON 帧发送订单。
func (c *Client) SendOrder(o order.Order) error {
	if c.limiter != nil {
		c.limiter.Wait()
	}
	payload, err := json.Marshal(map[string]any{
		"type": "order",
		"data": wireOrder{
			Market: o.Market,
			Side:   string(o.Side),
			Kind:   string(o.Kind),
			Price:  o.Price,
			Units:  o.Units,
			Ref:    o.Ref,
		},
	})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close 关闭连接。
func (c *Client) Close() error {
	return c.conn.Close()
}
