package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"quote-monitor-go/config"
	"quote-monitor-go/gateway"
	"quote-monitor-go/infrastructure/logger"
	"quote-monitor-go/metrics"
	"quote-monitor-go/monitor/logschema"
	"quote-monitor-go/quote"
	"quote-monitor-go/render"
)

var appLog *logger.Logger

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	symbolsFlag := flag.String("symbols", "", "逗号分隔的合约列表，覆盖配置文件")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置文件")
	noClear := flag.Bool("noClear", false, "不清屏，逐帧追加输出")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	symbols := cfg.Symbols
	if *symbolsFlag != "" {
		symbols = splitSymbols(*symbolsFlag)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	// 渲染表格占用 stdout，日志仅 stdout 输出时改走文件
	logCfg := cfg.Log
	if len(logCfg.Outputs) == 1 && logCfg.Outputs[0] == "stdout" {
		logCfg.Outputs = []string{"file"}
		if logCfg.OutputFile == "" {
			logCfg.OutputFile = "quote-monitor.log"
		}
	}
	appLog, err = logger.New(logCfg)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer appLog.Close()

	metrics.StartMetricsServer(cfg.Metrics.Addr)

	agg := quote.NewAggregator(quote.Options{
		RefreshCadence: time.Duration(cfg.Monitor.RefreshCadenceMs) * time.Millisecond,
		BurstThreshold: cfg.Monitor.BurstThreshold,
		LatencyWindow:  cfg.Monitor.LatencyWindowSize,
		MaxLatencyMs:   cfg.Monitor.MaxLatencyMs,
		MaxClockSkewMs: cfg.Monitor.MaxClockSkewMs,
		Sink:           logEvent,
	})

	renderer := render.NewTableRenderer(os.Stdout)
	renderer.ClearScreen = !*noClear

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agg.Start(ctx, renderer)

	ws := gateway.NewClient(cfg.Feed.Endpoint, cfg.Feed.Exchange, cfg.Feed.Token)
	ws.SetRetryPolicy(cfg.Feed.MaxRetries, time.Duration(cfg.Feed.RetryBackoffMs)*time.Millisecond)
	ws.SetEventSink(logEvent)
	ws.SetEventHandler(func(ev quote.UpdateEvent) {
		agg.OnEvent(ev)
	})
	fatal := make(chan error, 1)
	ws.SetConnectionHandlers(
		func() {
			logEvent("ws_connect", map[string]interface{}{"endpoint": cfg.Feed.Endpoint})
		},
		func(err error) {
			if err != nil {
				// 重连次数耗尽，触发退出
				select {
				case fatal <- err:
				default:
				}
			}
		},
	)
	if err := ws.Start(symbols); err != nil {
		log.Fatalf("启动行情连接失败: %v", err)
	}

	// 配置热加载：运行中只调延迟边界，其余参数下次启动生效
	watcher := config.Watcher{Path: *cfgPath, Cooldown: 2 * time.Second}
	go func() {
		_ = watcher.Start(ctx, func(next config.AppConfig) {
			agg.Ingest.SetBounds(quote.IngestBounds{
				MaxLatencyMs:   next.Monitor.MaxLatencyMs,
				MaxClockSkewMs: next.Monitor.MaxClockSkewMs,
			})
			logEvent("config_reloaded", map[string]interface{}{
				"refreshCadenceMs": next.Monitor.RefreshCadenceMs,
				"burstThreshold":   next.Monitor.BurstThreshold,
			})
		})
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logEvent("monitor_exit", map[string]interface{}{"signal": sig.String()})
	case err := <-fatal:
		appLog.LogError(err, map[string]interface{}{"stage": "feed"})
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	ws.UnsubscribeAll()
	ws.Stop()
	agg.Stop()
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.ToUpper(trimmed))
		}
	}
	return out
}

func logEvent(event string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err := logschema.Validate(event, fields); err != nil {
		fields["_schema_error"] = err.Error()
	}
	if appLog != nil {
		appLog.LogFeed(event, fields)
		return
	}
	log.Printf("%s %+v", event, fields)
}
