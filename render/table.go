// Package render 终端表格渲染：把快照画成按合约排序的对齐表格。
package render

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"quote-monitor-go/quote"
)

const clearSequence = "\033[2J\033[H"

// TableRenderer 把快照渲染为终端表格。整帧先写入 builder 再一次
// 输出，避免半行刷新造成的闪烁。
type TableRenderer struct {
	Out         io.Writer
	ClearScreen bool

	startedAt time.Time
}

// NewTableRenderer 创建渲染器；out 为 nil 时使用 stdout
func NewTableRenderer(out io.Writer) *TableRenderer {
	if out == nil {
		out = os.Stdout
	}
	return &TableRenderer{
		Out:       out,
		startedAt: time.Now(),
	}
}

// Render 实现 quote.Renderer
func (r *TableRenderer) Render(s quote.RenderSnapshot) {
	if len(s.Instruments) == 0 {
		return
	}

	symbols := make([]string, 0, len(s.Instruments))
	var totalUpdates int64
	for sym, st := range s.Instruments {
		symbols = append(symbols, sym)
		totalUpdates += st.UpdateCount
	}
	sort.Strings(symbols)

	var b strings.Builder
	if r.ClearScreen {
		b.WriteString(clearSequence)
	}

	fmt.Fprintf(&b, "实时行情监控  运行 %s  更新 %d 次  %s\n",
		time.Since(r.startedAt).Truncate(time.Second),
		totalUpdates,
		s.AsOf.Format("15:04:05.000"))
	fmt.Fprintf(&b, "%-10s %-14s %-14s %-10s %-10s %-8s %s\n",
		"SYMBOL", "BID", "ASK", "SPREAD", "LAT(ms)", "UPDATES", "LAST")
	b.WriteString(strings.Repeat("-", 80))
	b.WriteByte('\n')

	for _, sym := range symbols {
		st := s.Instruments[sym]
		fmt.Fprintf(&b, "%-10s %-14s %-14s %-10s %-10s %-8d %s\n",
			sym,
			sideCell(st.Bid, st.BidDir),
			sideCell(st.Ask, st.AskDir),
			spreadCell(st),
			latencyCell(st.LastLatencyMs),
			st.UpdateCount,
			st.LastReceiveInstant.Format("15:04:05.000"))
	}

	if s.Latency.Count > 0 {
		fmt.Fprintf(&b, "延迟窗口: %d 样本  均值 %.1fms  最小 %.1fms  最大 %.1fms\n",
			s.Latency.Count, s.Latency.MeanMs, s.Latency.MinMs, s.Latency.MaxMs)
	}

	fmt.Fprint(r.Out, b.String())
}

func sideCell(l *quote.Level, d quote.Direction) string {
	if l == nil {
		return "-"
	}
	return fmt.Sprintf("%s%.2f", indicator(d), l.Price)
}

func spreadCell(st quote.InstrumentState) string {
	if st.Bid == nil || st.Ask == nil {
		return "-"
	}
	if st.Crossed {
		// 交叉盘口原值显示并标记
		return fmt.Sprintf("%.2f !X", st.Spread)
	}
	return fmt.Sprintf("%.2f", st.Spread)
}

func latencyCell(ms *float64) string {
	if ms == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f", *ms)
}

// indicator 单字符方向指示
func indicator(d quote.Direction) string {
	switch d {
	case quote.DirectionUp:
		return "↑"
	case quote.DirectionDown:
		return "↓"
	case quote.DirectionFlat:
		return "="
	default:
		return " "
	}
}
