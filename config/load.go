package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quote-monitor-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Feed    FeedConfig    `yaml:"feed"`
	Monitor MonitorConfig `yaml:"monitor"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     logger.Config `yaml:"log"`
	Symbols []string      `yaml:"symbols"`
}

// FeedConfig 行情 WebSocket 接入配置；token 建议用环境变量传入。
type FeedConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Exchange       string `yaml:"exchange"`
	Token          string `yaml:"token"`
	MaxRetries     int    `yaml:"maxRetries"`
	RetryBackoffMs int    `yaml:"retryBackoffMs"`
}

// MonitorConfig 聚合与渲染节奏配置。
type MonitorConfig struct {
	RefreshCadenceMs  int     `yaml:"refreshCadenceMs"`  // 定时刷新周期（毫秒）
	BurstThreshold    int     `yaml:"burstThreshold"`    // 触发立即渲染的事件数
	LatencyWindowSize int     `yaml:"latencyWindowSize"` // 延迟滚动窗口容量
	MaxLatencyMs      float64 `yaml:"maxLatencyMs"`      // 延迟样本上界（毫秒）
	MaxClockSkewMs    float64 `yaml:"maxClockSkewMs"`    // 允许的最大负延迟（毫秒）
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML config from path, fills defaults and validates.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("QM_FEED_ENDPOINT"); v != "" {
		cfg.Feed.Endpoint = v
	}
	if v := os.Getenv("QM_FEED_TOKEN"); v != "" {
		cfg.Feed.Token = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Monitor.RefreshCadenceMs == 0 {
		cfg.Monitor.RefreshCadenceMs = 1000
	}
	if cfg.Monitor.BurstThreshold == 0 {
		cfg.Monitor.BurstThreshold = 5
	}
	if cfg.Monitor.LatencyWindowSize == 0 {
		cfg.Monitor.LatencyWindowSize = 50
	}
	if cfg.Monitor.MaxLatencyMs == 0 {
		cfg.Monitor.MaxLatencyMs = 60_000
	}
	if cfg.Monitor.MaxClockSkewMs == 0 {
		cfg.Monitor.MaxClockSkewMs = 5_000
	}
	if cfg.Feed.MaxRetries == 0 {
		cfg.Feed.MaxRetries = 5
	}
	if cfg.Feed.RetryBackoffMs == 0 {
		cfg.Feed.RetryBackoffMs = 3000
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Log.Level == "" {
		cfg.Log = logger.DefaultConfig()
	}
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Feed.Endpoint == "" {
		return errors.New("feed.endpoint is required (or QM_FEED_ENDPOINT)")
	}
	if len(cfg.Symbols) == 0 {
		return errors.New("symbols list is required")
	}
	for _, sym := range cfg.Symbols {
		if sym == "" {
			return errors.New("symbols must not contain empty entries")
		}
	}
	if cfg.Feed.MaxRetries < 0 {
		return errors.New("feed.maxRetries must be >= 0")
	}
	if cfg.Feed.RetryBackoffMs < 0 {
		return errors.New("feed.retryBackoffMs must be >= 0")
	}
	return ValidateMonitor(cfg.Monitor)
}
