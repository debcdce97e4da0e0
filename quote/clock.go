package quote

import "time"

// Clock 时间源抽象，便于测试注入假时钟
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 默认的真实时钟
var SystemClock Clock = systemClock{}
