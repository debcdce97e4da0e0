package quote

import (
	"strings"
	"sync"

	"quote-monitor-go/metrics"
)

// 丢弃原因，作为日志字段与 Prometheus label 使用
const (
	DropEmptySymbol = "empty-symbol"
	DropNoBookData  = "no-book-data"
)

// Result 单个事件的受理结果
type Result struct {
	Accepted bool
	Reason   string
}

// Accepted 事件已写入状态表
var Accepted = Result{Accepted: true}

// Dropped 以给定原因拒绝事件
func Dropped(reason string) Result {
	return Result{Reason: reason}
}

// IngestBounds 延迟样本的合理性边界。归一出的延迟超出
// [-MaxClockSkewMs, MaxLatencyMs] 时视为解析或时钟异常，
// 样本不进入统计窗口，避免污染均值。
type IngestBounds struct {
	MaxLatencyMs   float64
	MaxClockSkewMs float64
}

// 默认边界：一分钟以上的"延迟"几乎必然是单位判断错误，
// 5 秒以上的负延迟超出了 NTP 正常漂移范围。
const (
	DefaultMaxLatencyMs   = 60_000
	DefaultMaxClockSkewMs = 5_000
)

// eventNotifier 每个接受事件后的回调，由渲染调度器实现
type eventNotifier interface {
	EventAccepted()
}

// Ingest 事件受理入口：校验、时间戳归一、写入状态表、驱动延迟
// 统计与渲染计数。同步执行且从不阻塞等待渲染。
type Ingest struct {
	store   *Store
	latency *LatencyAggregator
	notify  eventNotifier
	sink    EventSink

	mu     sync.RWMutex
	bounds IngestBounds
}

// NewIngest 创建受理入口；notify 与 sink 可为 nil
func NewIngest(store *Store, latency *LatencyAggregator, notify eventNotifier, bounds IngestBounds, sink EventSink) *Ingest {
	if bounds.MaxLatencyMs <= 0 {
		bounds.MaxLatencyMs = DefaultMaxLatencyMs
	}
	if bounds.MaxClockSkewMs <= 0 {
		bounds.MaxClockSkewMs = DefaultMaxClockSkewMs
	}
	return &Ingest{
		store:   store,
		latency: latency,
		notify:  notify,
		bounds:  bounds,
		sink:    sink,
	}
}

// SetBounds 替换延迟边界（配置热加载路径）
func (in *Ingest) SetBounds(bounds IngestBounds) {
	if bounds.MaxLatencyMs <= 0 || bounds.MaxClockSkewMs <= 0 {
		return
	}
	in.mu.Lock()
	in.bounds = bounds
	in.mu.Unlock()
}

// OnEvent 受理一个规范化事件。丢弃发生在任何状态修改之前；
// 时间戳无法识别只跳过延迟计算，价格仍然生效。
func (in *Ingest) OnEvent(ev UpdateEvent) Result {
	if strings.TrimSpace(ev.Symbol) == "" {
		in.drop(DropEmptySymbol, ev)
		return Dropped(DropEmptySymbol)
	}
	if ev.Bid == nil && ev.Ask == nil {
		in.drop(DropNoBookData, ev)
		return Dropped(DropNoBookData)
	}

	fields := ApplyFields{
		Bid:            ev.Bid,
		Ask:            ev.Ask,
		ReceiveInstant: ev.ReceiveInstant,
	}

	if ev.RawTimestamp != nil {
		exch, err := NormalizeTimestamp(ev.RawTimestamp)
		if err != nil {
			metrics.InvalidTimestamps.Inc()
		} else {
			ts := exch
			fields.ExchangeInstant = &ts
			lat := LatencyMs(ev.ReceiveInstant, exch)
			if in.withinBounds(lat) {
				fields.LatencyMs = &lat
				in.latency.Push(LatencySample{ValueMs: lat, CapturedAt: ev.ReceiveInstant})
				metrics.ObserveLatency(lat)
			}
		}
	}

	in.store.Apply(ev.Symbol, fields)
	metrics.UpdatesTotal.WithLabelValues(ev.Symbol).Inc()

	if in.notify != nil {
		in.notify.EventAccepted()
	}
	return Accepted
}

func (in *Ingest) withinBounds(latMs float64) bool {
	in.mu.RLock()
	b := in.bounds
	in.mu.RUnlock()
	return latMs >= -b.MaxClockSkewMs && latMs <= b.MaxLatencyMs
}

func (in *Ingest) drop(reason string, ev UpdateEvent) {
	metrics.DroppedTotal.WithLabelValues(reason).Inc()
	if in.sink != nil {
		in.sink("event_dropped", map[string]interface{}{
			"reason": reason,
			"symbol": ev.Symbol,
		})
	}
}
