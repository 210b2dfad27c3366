package guard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"machine-guard/internal/health"
	"machine-guard/internal/models"
)

// BuildStatus 构建对外状态载荷
//
// primary_issue 只收录标准化偏差超过 significantDev 的特征；
// 没有特征达标时回退为偏差最高的单个特征；NORMAL 时为 "NONE"
func BuildStatus(
	deviceID string,
	healthScore float64,
	risk models.Risk,
	contributions []health.Contribution,
	reading *models.Reading,
	significantDev float64,
	at time.Time,
) *models.StatusPayload {
	sensors := make(map[string]models.SensorReport, len(contributions))
	for _, c := range contributions {
		sensors[c.Feature] = models.SensorReport{
			Value:     round2(reading.Features[c.Feature]),
			Deviation: round2(c.Deviation),
		}
	}

	return &models.StatusPayload{
		DeviceID:     deviceID,
		Health:       round1(healthScore),
		Risk:         risk,
		PrimaryIssue: buildPrimaryIssue(risk, contributions, significantDev),
		Sensors:      sensors,
		Timestamp:    at.Unix(),
	}
}

// buildPrimaryIssue 构建主要问题描述
func buildPrimaryIssue(risk models.Risk, contributions []health.Contribution, significantDev float64) string {
	if risk == models.RiskNormal {
		return "NONE"
	}

	var parts []string
	for _, c := range contributions {
		if c.Deviation > significantDev {
			parts = append(parts, fmt.Sprintf("%s (Deviation: %.2fx)",
				strings.ToUpper(c.Feature), c.Deviation))
		}
	}

	// 回退：没有特征超过阈值时至少给出偏差最高的一个
	if len(parts) == 0 && len(contributions) > 0 {
		top := contributions[0]
		parts = append(parts, fmt.Sprintf("%s (Deviation: %.2fx)",
			strings.ToUpper(top.Feature), top.Deviation))
	}

	return strings.Join(parts, " | ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
