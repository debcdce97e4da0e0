package quote

import (
	"context"
	"sync"
	"time"

	"quote-monitor-go/metrics"
)

// SchedState 渲染调度器状态
type SchedState int32

const (
	// SchedIdle 未启动或已停止
	SchedIdle SchedState = iota
	// SchedArmed 等待下一次触发
	SchedArmed
	// SchedRendering 正在构建并交付快照
	SchedRendering
)

func (s SchedState) String() string {
	switch s {
	case SchedIdle:
		return "idle"
	case SchedArmed:
		return "armed"
	case SchedRendering:
		return "rendering"
	default:
		return "unknown"
	}
}

// SchedulerConfig 渲染节奏配置
type SchedulerConfig struct {
	// RefreshCadence 定时刷新周期；安静窗口内也按此周期渲染一次
	RefreshCadence time.Duration
	// BurstThreshold 自上次渲染起接受的事件数达到该值时立即渲染
	BurstThreshold int
}

const (
	DefaultRefreshCadence = 1 * time.Second
	DefaultBurstThreshold = 5
)

// Scheduler 把无界的事件到达率解耦为有界的渲染频率。
// 两个触发源取先到者：节奏定时器与突发阈值。快照经容量 1 的
// 通道交付，渲染端落后时旧快照被新快照顶掉，从不向受理端
// 施加背压。
type Scheduler struct {
	cfg     SchedulerConfig
	store   *Store
	latency *LatencyAggregator
	clock   Clock

	mu      sync.Mutex
	state   SchedState
	pending int
	cancel  context.CancelFunc
	done    chan struct{}

	kick chan struct{}
	out  chan RenderSnapshot
}

// NewScheduler 创建调度器；零值配置项使用默认值
func NewScheduler(cfg SchedulerConfig, store *Store, latency *LatencyAggregator) *Scheduler {
	if cfg.RefreshCadence <= 0 {
		cfg.RefreshCadence = DefaultRefreshCadence
	}
	if cfg.BurstThreshold <= 0 {
		cfg.BurstThreshold = DefaultBurstThreshold
	}
	return &Scheduler{
		cfg:     cfg,
		store:   store,
		latency: latency,
		clock:   SystemClock,
		kick:    make(chan struct{}, 1),
		out:     make(chan RenderSnapshot, 1),
	}
}

// SetClock 注入时钟（测试用）；Start 之前调用
func (s *Scheduler) SetClock(c Clock) {
	if c != nil {
		s.clock = c
	}
}

// Start 进入 Armed 状态并启动定时循环；重复调用无效
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != SchedIdle {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = SchedArmed
	s.mu.Unlock()

	go s.run(runCtx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.RefreshCadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.render()
		case <-s.kick:
			s.render()
			// 突发渲染后重置节奏，避免紧跟一次多余的定时渲染
			ticker.Reset(s.cfg.RefreshCadence)
		}
	}
}

// EventAccepted 由 ingest 在每个接受事件后调用；计数达到阈值时
// 触发立即渲染。触发信号经容量 1 的通道去重。
func (s *Scheduler) EventAccepted() {
	s.mu.Lock()
	if s.state == SchedIdle {
		s.mu.Unlock()
		return
	}
	s.pending++
	hit := s.pending >= s.cfg.BurstThreshold
	if hit {
		s.pending = 0
	}
	s.mu.Unlock()

	if hit {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// render 构建快照并以 latest-wins 方式交付
func (s *Scheduler) render() {
	s.mu.Lock()
	if s.state == SchedIdle {
		s.mu.Unlock()
		return
	}
	s.state = SchedRendering
	s.pending = 0
	s.mu.Unlock()

	snap := RenderSnapshot{
		Instruments: s.store.Snapshot(),
		Latency:     s.latency.Stats(),
		AsOf:        s.clock.Now(),
	}
	select {
	case s.out <- snap:
	default:
		// 上一帧尚未被取走：丢掉它，放入最新的
		select {
		case <-s.out:
		default:
		}
		select {
		case s.out <- snap:
		default:
		}
	}
	metrics.RendersTotal.Inc()
	metrics.FeedLatencyMeanMs.Set(snap.Latency.MeanMs)

	s.mu.Lock()
	if s.state == SchedRendering {
		s.state = SchedArmed
	}
	s.mu.Unlock()
}

// Snapshots 渲染快照通道（容量 1，latest-wins）
func (s *Scheduler) Snapshots() <-chan RenderSnapshot {
	return s.out
}

// State 当前调度状态
func (s *Scheduler) State() SchedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop 停止定时循环并回到 Idle；任意状态下可调用，幂等
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == SchedIdle {
		s.mu.Unlock()
		return
	}
	s.state = SchedIdle
	s.pending = 0
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
