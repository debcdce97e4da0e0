package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quote-monitor-go/metrics"
	"quote-monitor-go/quote"
)

const readDeadline = 30 * time.Second

// subscribeRequest 按合约订阅盘口的请求体
type subscribeRequest struct {
	Opcode   string `json:"opcode"`
	Code     string `json:"code"`
	Exchange string `json:"exchange"`
	Depth    int    `json:"depth"`
	Format   string `json:"format"`
	GUID     string `json:"guid"`
	Token    string `json:"token"`
}

// unsubscribeRequest 按 guid 退订的请求体
type unsubscribeRequest struct {
	Opcode string `json:"opcode"`
	GUID   string `json:"guid"`
	Token  string `json:"token"`
}

// Client 行情 WebSocket 客户端：按合约订阅、读取循环与有限重连。
// token 由调用方传入，获取与刷新不在这里。
type Client struct {
	Endpoint string
	Exchange string
	Token    string

	conn         *websocket.Conn
	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	maxRetries   int
	retryBackoff time.Duration

	subs           map[string]string // guid -> symbol
	onEvent        func(quote.UpdateEvent)
	onConnected    func()
	onDisconnected func(error)
	eventSink      func(string, map[string]interface{})
}

// NewClient 创建客户端，使用默认重连策略
func NewClient(endpoint, exchange, token string) *Client {
	return &Client{
		Endpoint:     endpoint,
		Exchange:     exchange,
		Token:        token,
		maxRetries:   5,
		retryBackoff: 3 * time.Second,
		subs:         make(map[string]string),
	}
}

// SetEventHandler 设置规范化事件回调（通常绑定 Aggregator.OnEvent）
func (c *Client) SetEventHandler(fn func(quote.UpdateEvent)) {
	c.onEvent = fn
}

// SetEventSink 设置结构化日志回调
func (c *Client) SetEventSink(fn func(string, map[string]interface{})) {
	c.eventSink = fn
}

// SetConnectionHandlers 设置连接建立与断开的回调
func (c *Client) SetConnectionHandlers(onConnected func(), onDisconnected func(error)) {
	c.onConnected = onConnected
	c.onDisconnected = onDisconnected
}

// SetRetryPolicy 覆盖默认重连策略
func (c *Client) SetRetryPolicy(maxRetries int, backoff time.Duration) {
	if maxRetries > 0 {
		c.maxRetries = maxRetries
	}
	if backoff > 0 {
		c.retryBackoff = backoff
	}
}

// Start 连接并订阅给定合约，读取在后台 goroutine 进行
func (c *Client) Start(symbols []string) error {
	if len(symbols) == 0 {
		return errors.New("no symbols to subscribe")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.ctx = ctx
	c.cancel = cancel
	go c.run(symbols)
	return nil
}

// Stop 关闭连接并停止重连；幂等
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

// run 连接、订阅并读取，断开后按退避重连
func (c *Client) run(symbols []string) {
	retries := 0
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}
		conn, _, err := websocket.DefaultDialer.Dial(c.Endpoint, nil)
		if err != nil {
			if retries >= c.maxRetries {
				fatalErr := fmt.Errorf("websocket reconnection failed after %d retries: %w", c.maxRetries, err)
				log.Printf("%v", fatalErr)
				c.emit("ws_exhausted", map[string]interface{}{
					"retries": retries,
				})
				if c.onDisconnected != nil {
					c.onDisconnected(fatalErr)
				}
				return
			}
			retries++
			backoff := time.Duration(retries) * c.retryBackoff
			log.Printf("ws dial failed (%d/%d): %v, retry in %s", retries, c.maxRetries, err, backoff)
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		metrics.WSConnected.Set(1)
		if retries > 0 {
			metrics.WSReconnects.Inc()
		}
		c.emit("ws_connect", map[string]interface{}{
			"endpoint": c.Endpoint,
		})
		if err := c.subscribeAll(conn, symbols); err != nil {
			log.Printf("subscribe failed: %v", err)
		}
		if c.onConnected != nil {
			c.onConnected()
		}
		retries = 0

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		metrics.WSConnected.Set(0)
		c.emit("ws_disconnect", map[string]interface{}{})
		if c.onDisconnected != nil {
			c.onDisconnected(nil)
		}
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.retryBackoff):
		}
	}
}

// subscribeAll 为每个合约发送 OrderBookGetAndSubscribe 请求
func (c *Client) subscribeAll(conn *websocket.Conn, symbols []string) error {
	for _, sym := range symbols {
		guid := fmt.Sprintf("qm-%s-%d", strings.ToLower(sym), time.Now().UnixNano())
		req := subscribeRequest{
			Opcode:   "OrderBookGetAndSubscribe",
			Code:     sym,
			Exchange: c.Exchange,
			Depth:    1,
			Format:   "Simple",
			GUID:     guid,
			Token:    c.Token,
		}
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
		c.mu.Lock()
		c.subs[guid] = sym
		c.mu.Unlock()
	}
	return nil
}

// UnsubscribeAll 向服务端退订全部合约并清空订阅表
func (c *Client) UnsubscribeAll() {
	c.mu.Lock()
	conn := c.conn
	guids := make([]string, 0, len(c.subs))
	for guid := range c.subs {
		guids = append(guids, guid)
	}
	c.subs = make(map[string]string)
	c.mu.Unlock()

	if conn == nil {
		return
	}
	for _, guid := range guids {
		req := unsubscribeRequest{Opcode: "unsubscribe", GUID: guid, Token: c.Token}
		if err := conn.WriteJSON(req); err != nil {
			log.Printf("unsubscribe %s: %v", guid, err)
			return
		}
	}
}

// readLoop 读取报文并交给解析器；接收时刻在这里打点
func (c *Client) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("ws read err: %v", err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		c.handleMessage(msg, time.Now())
	}
}

// handleMessage 按 guid 定位合约并产出规范化事件
func (c *Client) handleMessage(raw []byte, receivedAt time.Time) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}
	if env.GUID == "" || len(env.Data) == 0 {
		// 订阅确认等控制消息
		return
	}
	c.mu.Lock()
	sym := c.subs[env.GUID]
	c.mu.Unlock()
	if sym == "" {
		return
	}

	ev, err := ParseOrderBook(raw, sym, receivedAt)
	if err != nil {
		if !errors.Is(err, ErrControlMessage) {
			c.emit("parse_error", map[string]interface{}{
				"symbol": sym,
				"error":  err.Error(),
			})
		}
		return
	}
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}

func (c *Client) emit(event string, fields map[string]interface{}) {
	if c.eventSink != nil {
		c.eventSink(event, fields)
	}
}
