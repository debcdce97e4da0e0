package quote

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidTimestamp 原始时间戳形状无法识别
var ErrInvalidTimestamp = errors.New("invalid timestamp")

const (
	// 数值超过该阈值视为 epoch 毫秒
	epochMillisFloor = 1e12
	// 数值超过该阈值（且不超过毫秒阈值）视为 epoch 秒
	epochSecondsFloor = 1e9
)

// NormalizeTimestamp 将未知编码的原始时间戳归一为 UTC 时刻。
// 数值 > 1e12 按 epoch 毫秒解释；(1e9, 1e12] 按 epoch 秒解释；
// 字符串按 ISO-8601 解析，无时区信息时视为 UTC。其余形状一律
// 返回 ErrInvalidTimestamp，调用方据此跳过延迟计算。
func NormalizeTimestamp(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, ErrInvalidTimestamp
		}
		return normalizeNumeric(f)
	case float64:
		return normalizeNumeric(v)
	case int64:
		return normalizeNumeric(float64(v))
	case int:
		return normalizeNumeric(float64(v))
	case string:
		return parseISO(v)
	default:
		return time.Time{}, ErrInvalidTimestamp
	}
}

func normalizeNumeric(v float64) (time.Time, error) {
	switch {
	case v > epochMillisFloor:
		return time.UnixMilli(int64(v)).UTC(), nil
	case v > epochSecondsFloor:
		sec := int64(v)
		nsec := int64((v - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	default:
		return time.Time{}, ErrInvalidTimestamp
	}
}

// isoLayouts 行情源见过的 ISO-8601 变体；无时区的按 UTC 解析
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseISO(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// LatencyMs 接收时刻减交易所时刻的毫秒差。本地时钟落后于交易所
// 时结果为负，保留原值不截断。
func LatencyMs(receive, exchange time.Time) float64 {
	return float64(receive.Sub(exchange)) / float64(time.Millisecond)
}
