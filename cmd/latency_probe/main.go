// latency_probe 订阅单个合约并持续测量行情源到本地的延迟。
// 每条更新打印一行，每攒满一个窗口输出统计汇总。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quote-monitor-go/gateway"
	"quote-monitor-go/quote"
)

func main() {
	endpoint := flag.String("endpoint", "wss://api.alor.ru/ws", "行情 WebSocket 地址")
	exchange := flag.String("exchange", "MOEX", "交易所代码")
	symbol := flag.String("symbol", "SBER", "合约代码")
	token := flag.String("token", "", "访问令牌（缺省读 QM_FEED_TOKEN）")
	window := flag.Int("window", 20, "统计窗口大小（样本数）")
	duration := flag.Duration("duration", 0, "测量时长，0 表示直到 Ctrl+C")
	flag.Parse()

	tok := *token
	if tok == "" {
		tok = os.Getenv("QM_FEED_TOKEN")
	}

	agg := quote.NewLatencyAggregator(*window)
	samples := 0

	ws := gateway.NewClient(*endpoint, *exchange, tok)
	ws.SetEventHandler(func(ev quote.UpdateEvent) {
		if ev.RawTimestamp == nil {
			return
		}
		exch, err := quote.NormalizeTimestamp(ev.RawTimestamp)
		if err != nil {
			fmt.Printf("%s  无法识别的时间戳: %v\n",
				ev.ReceiveInstant.Format("15:04:05.000"), ev.RawTimestamp)
			return
		}
		lat := quote.LatencyMs(ev.ReceiveInstant, exch)
		agg.Push(quote.LatencySample{ValueMs: lat, CapturedAt: ev.ReceiveInstant})
		samples++

		fmt.Printf("%s  %s  延迟 %+8.1fms  bid=%s ask=%s\n",
			ev.ReceiveInstant.Format("15:04:05.000"),
			ev.Symbol, lat, levelStr(ev.Bid), levelStr(ev.Ask))

		if samples%*window == 0 {
			printStats(agg)
		}
	})

	if err := ws.Start([]string{*symbol}); err != nil {
		log.Fatalf("启动失败: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if *duration > 0 {
		select {
		case <-quit:
		case <-time.After(*duration):
		}
	} else {
		<-quit
	}

	ws.UnsubscribeAll()
	ws.Stop()

	fmt.Printf("\n共 %d 条样本，最终窗口：\n", samples)
	printStats(agg)
}

func printStats(agg *quote.LatencyAggregator) {
	stats := agg.Stats()
	if stats.Count == 0 {
		fmt.Println("窗口内暂无样本")
		return
	}
	fmt.Printf("---- 窗口 %d 样本  均值 %+.1fms  最小 %+.1fms  最大 %+.1fms ----\n",
		stats.Count, stats.MeanMs, stats.MinMs, stats.MaxMs)
}

func levelStr(l *quote.Level) string {
	if l == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", l.Price)
}
