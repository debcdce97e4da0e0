// Package quote 实时盘口状态聚合核心：时间戳归一、变动分类、
// 延迟统计、合约状态表与渲染调度。
package quote

import "time"

// Level 盘口单档价量
type Level struct {
	Price  float64
	Volume float64
}

// Direction 字段相对上一次观测的变动方向
type Direction int

const (
	// DirectionFirst 首次观测，没有可比较的前值
	DirectionFirst Direction = iota
	// DirectionUp 高于前值
	DirectionUp
	// DirectionDown 低于前值
	DirectionDown
	// DirectionFlat 与前值相等（精确比较）
	DirectionFlat
)

func (d Direction) String() string {
	switch d {
	case DirectionFirst:
		return "first"
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	case DirectionFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// UpdateEvent 规范化后的盘口更新事件，由 gateway 适配层产出。
// Bid/Ask 为 nil 表示该侧本次未携带数据；RawTimestamp 保留原始
// 编码（数值或字符串），由 ingest 统一判定。
type UpdateEvent struct {
	Symbol         string
	Bid            *Level
	Ask            *Level
	RawTimestamp   any
	ReceiveInstant time.Time
}

// InstrumentState 单个合约的最新状态，只由 Store 在临界区内修改。
// 指针字段 nil 表示尚未观测到对应数据。
type InstrumentState struct {
	Symbol string

	Bid     *Level
	Ask     *Level
	Spread  float64
	Crossed bool

	PrevBid *Level
	PrevAsk *Level
	BidDir  Direction
	AskDir  Direction

	LastExchangeInstant *time.Time
	LastReceiveInstant  time.Time
	LastLatencyMs       *float64

	UpdateCount int64
}

// clone 深拷贝，快照读取方拿到的状态与表内状态不共享任何指针。
func (st *InstrumentState) clone() InstrumentState {
	out := *st
	out.Bid = cloneLevel(st.Bid)
	out.Ask = cloneLevel(st.Ask)
	out.PrevBid = cloneLevel(st.PrevBid)
	out.PrevAsk = cloneLevel(st.PrevAsk)
	if st.LastExchangeInstant != nil {
		ts := *st.LastExchangeInstant
		out.LastExchangeInstant = &ts
	}
	if st.LastLatencyMs != nil {
		v := *st.LastLatencyMs
		out.LastLatencyMs = &v
	}
	return out
}

func cloneLevel(l *Level) *Level {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// LatencyStats 延迟滚动窗口的汇总统计
type LatencyStats struct {
	Count  int
	MeanMs float64
	MinMs  float64
	MaxMs  float64
}

// RenderSnapshot 某一时刻全部合约状态与延迟统计的不可变快照
type RenderSnapshot struct {
	Instruments map[string]InstrumentState
	Latency     LatencyStats
	AsOf        time.Time
}

// Renderer 消费快照并产生输出（终端表格、日志采样等）
type Renderer interface {
	Render(RenderSnapshot)
}

// EventSink 结构化日志出口，与具体日志实现解耦
type EventSink func(event string, fields map[string]interface{})
