package models

// Risk 风险分级
type Risk string

const (
	RiskNormal   Risk = "NORMAL"
	RiskWarning  Risk = "WARNING"
	RiskCritical Risk = "CRITICAL"
)

// DeviceState 设备生命周期状态
type DeviceState string

const (
	StateNew         DeviceState = "NEW"         // 未校准
	StateCalibrating DeviceState = "CALIBRATING" // 校准采样中
	StateMonitoring  DeviceState = "MONITORING"  // 在线监测中
)

// SensorReport 单个传感器的当前值与标准化偏差
type SensorReport struct {
	Value     float64 `json:"value"`
	Deviation float64 `json:"deviation"`
}

// StatusPayload 对外通知载荷（发布到 MQTT 状态主题和实时缓存）
type StatusPayload struct {
	DeviceID     string                  `json:"device_id"`
	Health       float64                 `json:"health"`
	Risk         Risk                    `json:"risk"`
	PrimaryIssue string                  `json:"primary_issue"`
	Sensors      map[string]SensorReport `json:"sensors"`
	Timestamp    int64                   `json:"timestamp"`
}

// CalibrationArtifact 持久化的校准产物
//
// MinAnom/MaxNice 是训练分数的 1/99 分位锚点；
// Scaler/Model 为序列化后的不透明二进制块，重启后按原样恢复
type CalibrationArtifact struct {
	MinAnom      float64            `json:"min_anom"`
	MaxNice      float64            `json:"max_nice"`
	BaselineMean map[string]float64 `json:"baseline_mean"`
	BaselineStd  map[string]float64 `json:"baseline_std"`
	Scaler       []byte             `json:"-"`
	Model        []byte             `json:"-"`
}
