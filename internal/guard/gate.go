package guard

import "machine-guard/internal/models"

// healthHistorySize 报警抑制用的健康度滑动窗口容量
const healthHistorySize = 3

// AlertGate 报警门控
//
// 维护每设备最近几次健康度的滑动窗口，决定状态变化是否值得对外通知，
// 抑制重复报警：
//  1. CRITICAL 且窗口内最近 3 次健康度均 < 50 → 通知（持续危急规则，过滤单点噪声）
//  2. WARNING 且上一次实际分级不是 WARNING → 通知（边沿触发）
//  3. NORMAL 且上一次实际分级不是 NORMAL → 通知（恢复边沿）
//  4. 其余情况抑制
//
// 无论是否通知，lastRisk 都更新为当前分级，
// 边沿检测始终对照最近一次实际分级，而不是最近一次已通知的分级
type AlertGate struct {
	history  []float64
	lastRisk models.Risk
}

// NewAlertGate 创建报警门控（初始分级视为 NORMAL）
func NewAlertGate() *AlertGate {
	return &AlertGate{
		history:  make([]float64, 0, healthHistorySize),
		lastRisk: models.RiskNormal,
	}
}

// ShouldNotify 判断本次分级是否需要对外通知
// 副作用：推进健康度窗口并记录本次分级
func (g *AlertGate) ShouldNotify(risk models.Risk, health float64) bool {
	g.history = append(g.history, health)
	if len(g.history) > healthHistorySize {
		g.history = g.history[1:]
	}

	notify := false
	switch {
	case risk == models.RiskCritical && g.persistentCritical():
		notify = true
	case risk == models.RiskWarning && g.lastRisk != models.RiskWarning:
		notify = true
	case risk == models.RiskNormal && g.lastRisk != models.RiskNormal:
		notify = true
	}

	g.lastRisk = risk
	return notify
}

// persistentCritical 窗口已满且最近3次健康度均低于50
func (g *AlertGate) persistentCritical() bool {
	if len(g.history) < healthHistorySize {
		return false
	}
	for _, h := range g.history {
		if h >= 50 {
			return false
		}
	}
	return true
}
