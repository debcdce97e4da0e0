package quote

// Classify 比较当前值与上一观测值，返回变动方向。previous 为 nil
// 表示首次观测。比较是精确的，不引入容差：行情价格来自离散的
// 价格步长，相等就是相等。
func Classify(current float64, previous *float64) Direction {
	if previous == nil {
		return DirectionFirst
	}
	switch {
	case current > *previous:
		return DirectionUp
	case current < *previous:
		return DirectionDown
	default:
		return DirectionFlat
	}
}
