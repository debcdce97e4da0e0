package quote

import (
	"sync"
	"time"
)

// DefaultLatencyWindow 默认延迟窗口容量
const DefaultLatencyWindow = 50

// LatencySample 单次延迟观测
type LatencySample struct {
	ValueMs    float64
	CapturedAt time.Time
}

// LatencyAggregator 固定容量的延迟滚动窗口。写入方为 ingest，
// 读取方为渲染调度器，内部加锁。
type LatencyAggregator struct {
	mu       sync.Mutex
	capacity int
	samples  []LatencySample
}

// NewLatencyAggregator 创建延迟聚合器，capacity <= 0 时使用默认容量
func NewLatencyAggregator(capacity int) *LatencyAggregator {
	if capacity <= 0 {
		capacity = DefaultLatencyWindow
	}
	return &LatencyAggregator{
		capacity: capacity,
		samples:  make([]LatencySample, 0, capacity),
	}
}

// Push 追加样本，窗口满时淘汰最旧的一条
func (a *LatencyAggregator) Push(s LatencySample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = append(a.samples, s)
	if len(a.samples) > a.capacity {
		a.samples = a.samples[1:]
	}
}

// Stats 返回当前窗口的汇总统计；窗口为空时各项为零
func (a *LatencyAggregator) Stats() LatencyStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.samples) == 0 {
		return LatencyStats{}
	}
	stats := LatencyStats{
		Count: len(a.samples),
		MinMs: a.samples[0].ValueMs,
		MaxMs: a.samples[0].ValueMs,
	}
	sum := 0.0
	for _, s := range a.samples {
		sum += s.ValueMs
		if s.ValueMs < stats.MinMs {
			stats.MinMs = s.ValueMs
		}
		if s.ValueMs > stats.MaxMs {
			stats.MaxMs = s.ValueMs
		}
	}
	stats.MeanMs = sum / float64(stats.Count)
	return stats
}

// Window 返回窗口内样本值的副本，按到达顺序排列
func (a *LatencyAggregator) Window() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]float64, len(a.samples))
	for i, s := range a.samples {
		out[i] = s.ValueMs
	}
	return out
}

// Reset 清空窗口
func (a *LatencyAggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = a.samples[:0]
}
