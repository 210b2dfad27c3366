package health

import "machine-guard/internal/models"

// ClassifyRisk 健康度到风险分级的纯函数
//
// health > 80 → NORMAL；50 < health ≤ 80 → WARNING；health ≤ 50 → CRITICAL
// 边界取值：50 属于 CRITICAL，80 属于 WARNING
func ClassifyRisk(health float64) models.Risk {
	switch {
	case health > 80:
		return models.RiskNormal
	case health > 50:
		return models.RiskWarning
	default:
		return models.RiskCritical
	}
}
