package quote

import (
	"context"
	"sync"
	"time"
)

// Options 聚合器配置；零值字段使用默认值
type Options struct {
	RefreshCadence time.Duration
	BurstThreshold int
	LatencyWindow  int
	MaxLatencyMs   float64
	MaxClockSkewMs float64
	Sink           EventSink
}

// Aggregator 显式的聚合上下文：状态表、延迟窗口、受理入口与
// 渲染调度器由它持有并接线。由调用方构造并传递，进程内可以
// 并存多个实例，不依赖任何包级全局状态。
type Aggregator struct {
	Store     *Store
	Latency   *LatencyAggregator
	Ingest    *Ingest
	Scheduler *Scheduler
	Publisher *Publisher

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewAggregator 构造并接线全部组件
func NewAggregator(opts Options) *Aggregator {
	store := NewStore(opts.Sink)
	latency := NewLatencyAggregator(opts.LatencyWindow)
	sched := NewScheduler(SchedulerConfig{
		RefreshCadence: opts.RefreshCadence,
		BurstThreshold: opts.BurstThreshold,
	}, store, latency)
	ingest := NewIngest(store, latency, sched, IngestBounds{
		MaxLatencyMs:   opts.MaxLatencyMs,
		MaxClockSkewMs: opts.MaxClockSkewMs,
	}, opts.Sink)

	return &Aggregator{
		Store:     store,
		Latency:   latency,
		Ingest:    ingest,
		Scheduler: sched,
		Publisher: NewPublisher(),
	}
}

// OnEvent 受理一个规范化事件（gateway 回调直接绑定到这里）
func (a *Aggregator) OnEvent(ev UpdateEvent) Result {
	return a.Ingest.OnEvent(ev)
}

// Start 启动调度循环，把快照送往 renderer 与发布器。
// renderer 可为 nil。重复调用无效。
func (a *Aggregator) Start(ctx context.Context, r Renderer) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	a.Scheduler.Start(runCtx)

	go func() {
		defer close(a.done)
		for {
			select {
			case <-runCtx.Done():
				return
			case snap := <-a.Scheduler.Snapshots():
				if r != nil {
					r.Render(snap)
				}
				a.Publisher.Publish(snap)
			}
		}
	}()
}

// Stop 停止调度与快照分发；任意时刻可调用，幂等
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	cancel := a.cancel
	done := a.done
	a.mu.Unlock()

	a.Scheduler.Stop()
	cancel()
	<-done
}

// Reset 清空全部合约状态与延迟窗口（退订全部合约的场景）
func (a *Aggregator) Reset() {
	a.Store.Reset()
	a.Latency.Reset()
}
