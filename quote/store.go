package quote

import (
	"sync"
	"time"

	"quote-monitor-go/metrics"
)

// ApplyFields 一次已接受事件要写入的字段；nil 字段保持原值不动
type ApplyFields struct {
	Bid             *Level
	Ask             *Level
	ExchangeInstant *time.Time
	LatencyMs       *float64
	ReceiveInstant  time.Time
}

// Store 按合约维护最新状态，是唯一的写入入口。单个 RWMutex 保护
// 整张表：写路径短（字段覆盖与价差重算），读路径为深拷贝快照。
type Store struct {
	mu          sync.RWMutex
	instruments map[string]*InstrumentState
	sink        EventSink
}

// NewStore 创建状态表；sink 可为 nil
func NewStore(sink EventSink) *Store {
	return &Store{
		instruments: make(map[string]*InstrumentState),
		sink:        sink,
	}
}

// Apply 创建或更新合约状态。前值保存、字段覆盖、计数递增与价差
// 重算在同一临界区内完成：读取方看到的要么全旧要么全新。
func (s *Store) Apply(symbol string, f ApplyFields) InstrumentState {
	s.mu.Lock()
	st, ok := s.instruments[symbol]
	if !ok {
		st = &InstrumentState{Symbol: symbol}
		s.instruments[symbol] = st
	}

	if f.Bid != nil {
		st.BidDir = Classify(f.Bid.Price, levelPrice(st.Bid))
		st.PrevBid = st.Bid
		st.Bid = cloneLevel(f.Bid)
	}
	if f.Ask != nil {
		st.AskDir = Classify(f.Ask.Price, levelPrice(st.Ask))
		st.PrevAsk = st.Ask
		st.Ask = cloneLevel(f.Ask)
	}
	if f.ExchangeInstant != nil {
		ts := *f.ExchangeInstant
		st.LastExchangeInstant = &ts
	}
	if f.LatencyMs != nil {
		v := *f.LatencyMs
		st.LastLatencyMs = &v
	}
	st.LastReceiveInstant = f.ReceiveInstant
	st.UpdateCount++
	st.Spread, st.Crossed = computeSpread(st.Bid, st.Ask)

	out := st.clone()
	count := len(s.instruments)
	s.mu.Unlock()

	metrics.InstrumentCount.Set(float64(count))
	if out.Bid != nil || out.Ask != nil {
		metrics.UpdateQuote(symbol, priceOrZero(out.Bid), priceOrZero(out.Ask), out.Spread)
	}
	return out
}

// Get 返回单个合约状态的深拷贝
func (s *Store) Get(symbol string) (InstrumentState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.instruments[symbol]
	if !ok {
		return InstrumentState{}, false
	}
	return st.clone(), true
}

// Snapshot 返回全部合约状态的深拷贝
func (s *Store) Snapshot() map[string]InstrumentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]InstrumentState, len(s.instruments))
	for sym, st := range s.instruments {
		out[sym] = st.clone()
	}
	return out
}

// Len 当前跟踪的合约数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instruments)
}

// Reset 清空全部状态（退订全部合约或行情源消失的场景）
func (s *Store) Reset() {
	s.mu.Lock()
	n := len(s.instruments)
	s.instruments = make(map[string]*InstrumentState)
	s.mu.Unlock()

	metrics.InstrumentCount.Set(0)
	s.logEvent("store_reset", map[string]interface{}{
		"instruments": n,
	})
}

func (s *Store) logEvent(event string, fields map[string]interface{}) {
	if s.sink != nil {
		s.sink(event, fields)
	}
}

// computeSpread 卖一减买一；仅在双边齐备时有意义，负值表示交叉盘口
func computeSpread(bid, ask *Level) (float64, bool) {
	if bid == nil || ask == nil {
		return 0, false
	}
	spread := ask.Price - bid.Price
	return spread, spread < 0
}

func levelPrice(l *Level) *float64 {
	if l == nil {
		return nil
	}
	p := l.Price
	return &p
}

func priceOrZero(l *Level) float64 {
	if l == nil {
		return 0
	}
	return l.Price
}
