package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quote-monitor-go/quote"
)

// ErrControlMessage 订阅确认等控制消息，不含盘口数据
var ErrControlMessage = errors.New("control message")

// Envelope 订阅推送的外层包装：guid 标识订阅，data 为盘口负载
type Envelope struct {
	GUID string          `json:"guid"`
	Data json.RawMessage `json:"data"`
}

// ParseOrderBook 解析一条盘口推送，产出规范化事件。receivedAt 为
// 本地接收时刻，由读取循环在报文到达时打点，不在解析中取时钟。
// 时间戳保持原始编码（json.Number 或字符串），由核心统一判定。
func ParseOrderBook(raw []byte, symbol string, receivedAt time.Time) (quote.UpdateEvent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return quote.UpdateEvent{}, fmt.Errorf("parse envelope: %w", err)
	}
	payload := env.Data
	if len(payload) == 0 {
		// 部分源不带外层包装，整条报文即负载
		payload = raw
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return quote.UpdateEvent{}, fmt.Errorf("parse payload: %w", err)
	}

	ev := quote.UpdateEvent{
		Symbol:         symbol,
		ReceiveInstant: receivedAt,
	}
	if side, ok := firstPresent(obj, bidKeys); ok {
		ev.Bid = parseBestLevel(side)
	}
	if side, ok := firstPresent(obj, askKeys); ok {
		ev.Ask = parseBestLevel(side)
	}
	if ts, ok := firstPresent(obj, timestampKeys); ok {
		ev.RawTimestamp = decodeTimestamp(ts)
	}

	if ev.Bid == nil && ev.Ask == nil && ev.RawTimestamp == nil {
		return quote.UpdateEvent{}, ErrControlMessage
	}
	return ev, nil
}

// parseBestLevel 只取最优档（首元素）。支持对象档位
// [{"price":.., "volume":..}] 与数组档位 [[price, qty]] 两种形状。
func parseBestLevel(raw json.RawMessage) *quote.Level {
	var objs []map[string]json.Number
	if err := json.Unmarshal(raw, &objs); err == nil && len(objs) > 0 {
		n, ok := firstNumber(objs[0], priceKeys)
		if !ok {
			return nil
		}
		price, err := n.Float64()
		if err != nil {
			return nil
		}
		lv := &quote.Level{Price: price}
		if v, ok := firstNumber(objs[0], volumeKeys); ok {
			if vol, err := v.Float64(); err == nil {
				lv.Volume = vol
			}
		}
		return lv
	}

	var pairs [][2]json.Number
	if err := json.Unmarshal(raw, &pairs); err == nil && len(pairs) > 0 {
		price, err := pairs[0][0].Float64()
		if err != nil {
			return nil
		}
		vol, _ := pairs[0][1].Float64()
		return &quote.Level{Price: price, Volume: vol}
	}
	return nil
}

// decodeTimestamp 保留原始编码交给核心判定，数值走 json.Number
// 以免大毫秒值损失精度
func decodeTimestamp(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
