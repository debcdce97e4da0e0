// Package metrics provides Prometheus metrics for the quote monitor
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpdatesTotal 按合约统计接受的行情更新总数
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_updates_total",
		Help: "接受的行情更新总数",
	}, []string{"symbol"})

	// DroppedTotal 按原因统计校验失败被丢弃的更新数
	DroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_updates_dropped_total",
		Help: "校验失败被丢弃的更新数",
	}, []string{"reason"})

	// InvalidTimestamps 无法识别的交易所时间戳总数
	InvalidTimestamps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_invalid_timestamps_total",
		Help: "无法识别的交易所时间戳总数",
	})

	// RendersTotal 渲染次数
	RendersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_renders_total",
		Help: "渲染次数",
	})

	// FeedLatencyMs 最近一次交易所到本地的延迟（毫秒）
	FeedLatencyMs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quote_feed_latency_ms",
		Help: "最近一次交易所到本地的延迟（毫秒）",
	})

	// FeedLatencyMeanMs 延迟滚动窗口均值（毫秒）
	FeedLatencyMeanMs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quote_feed_latency_mean_ms",
		Help: "延迟滚动窗口均值（毫秒）",
	})

	// InstrumentCount 当前跟踪的合约数
	InstrumentCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quote_instruments",
		Help: "当前跟踪的合约数",
	})

	// BestBid 当前买一价
	BestBid = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quote_best_bid",
		Help: "当前买一价",
	}, []string{"symbol"})

	// BestAsk 当前卖一价
	BestAsk = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quote_best_ask",
		Help: "当前卖一价",
	}, []string{"symbol"})

	// Spread 当前价差（卖一减买一，可为负）
	Spread = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quote_spread",
		Help: "当前价差（卖一减买一，可为负）",
	}, []string{"symbol"})

	// WSConnected WebSocket连接状态(1=已连接,0=断开)
	WSConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quote_ws_connected",
		Help: "WebSocket连接状态(1=已连接,0=断开)",
	})

	// WSReconnects WebSocket重连次数
	WSReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_ws_reconnects_total",
		Help: "WebSocket重连次数",
	})
)

// UpdateQuote 更新单个合约的盘口指标
func UpdateQuote(symbol string, bid, ask, spread float64) {
	if bid > 0 {
		BestBid.WithLabelValues(symbol).Set(bid)
	}
	if ask > 0 {
		BestAsk.WithLabelValues(symbol).Set(ask)
	}
	if bid > 0 && ask > 0 {
		Spread.WithLabelValues(symbol).Set(spread)
	}
}

// ObserveLatency 记录一次延迟样本
func ObserveLatency(ms float64) {
	FeedLatencyMs.Set(ms)
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
