package config

import "fmt"

// ValidateMonitor 校验聚合节奏参数。热加载路径单独调用：监控
// 参数可以在运行中改，feed 参数不行。
func ValidateMonitor(m MonitorConfig) error {
	if m.RefreshCadenceMs <= 0 {
		return ErrInvalid("monitor.refreshCadenceMs must be > 0")
	}
	if m.BurstThreshold <= 0 {
		return ErrInvalid("monitor.burstThreshold must be > 0")
	}
	if m.LatencyWindowSize <= 0 {
		return ErrInvalid("monitor.latencyWindowSize must be > 0")
	}
	if m.MaxLatencyMs <= 0 {
		return ErrInvalid("monitor.maxLatencyMs must be > 0")
	}
	if m.MaxClockSkewMs < 0 {
		return ErrInvalid(fmt.Sprintf("monitor.maxClockSkewMs must be >= 0, got %f", m.MaxClockSkewMs))
	}
	return nil
}

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }
