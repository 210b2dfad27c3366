package health

import "math"

// ScoreCalibration 分数到健康度的映射锚点
//
// MinAnom 为训练分数的 1 分位，MaxNice 为 99 分位；
// 决策边界 0.0 固定映射到 50% 健康度
type ScoreCalibration struct {
	MinAnom float64 `json:"min_anom"`
	MaxNice float64 `json:"max_nice"`
}

// Degenerate 锚点是否退化（百分位区间塌缩或越过决策边界）
// 退化时映射仍可用（输出被钳制），但应作为数据质量问题告警
func (c ScoreCalibration) Degenerate() bool {
	return c.MinAnom >= 0 || c.MaxNice <= 0 || c.MinAnom >= c.MaxNice
}

// MapHealth 将原始离群点分数映射为 0-100 健康度
//
// 三点分段线性插值：MinAnom→0，0.0→50，MaxNice→100；
// 锚点之外钳制而非外推。退化锚点被钳制到决策边界，保证单调不减
func MapHealth(raw float64, c ScoreCalibration) float64 {
	lo := math.Min(c.MinAnom, 0)
	hi := math.Max(c.MaxNice, 0)

	switch {
	case raw < lo:
		return 0
	case raw > hi:
		return 100
	case raw == 0:
		return 50
	case raw < 0:
		// lo <= raw < 0，此处 lo < 0 必然成立
		return 50 * (raw - lo) / (0 - lo)
	default:
		// 0 < raw <= hi，此处 hi > 0 必然成立
		return 50 + 50*raw/hi
	}
}
