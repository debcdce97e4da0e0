// Package gateway 行情源适配层：把交易所推送的原始报文归一为
// quote.UpdateEvent，并管理 WebSocket 订阅与重连。
package gateway

import "encoding/json"

// 不同行情源与网关版本对同一字段用过多种键名。别名表在适配层
// 边界一次性查表归一，核心代码不做动态字段探测。
var (
	bidKeys       = []string{"bids", "b"}
	askKeys       = []string{"asks", "a"}
	timestampKeys = []string{"ms_timestamp", "timestamp", "t"}
	priceKeys     = []string{"price", "p"}
	volumeKeys    = []string{"volume", "qty", "v"}
)

// firstPresent 按别名表顺序返回第一个存在的字段
func firstPresent(obj map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && len(v) > 0 {
			return v, true
		}
	}
	return nil, false
}

// firstNumber 同 firstPresent，作用于已解码的数值对象
func firstNumber(obj map[string]json.Number, keys []string) (json.Number, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}
