package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FeatureNames 传感器特征的声明顺序（固定 schema）
// 排序用于特征向量构建和贡献度排名的平局裁决，不可变更
var FeatureNames = []string{"temperature", "humidity", "gas", "vibration", "current"}

// Reading 一次设备采样（创建后不可变）
type Reading struct {
	DeviceID  string
	Features  map[string]float64
	Timestamp time.Time
}

// Vector 按声明顺序构建特征向量
func (r *Reading) Vector() []float64 {
	vec := make([]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		vec[i] = r.Features[name]
	}
	return vec
}

// ParseReading 解析并校验入站传感器载荷
//
// 校验规则：
// - 所有特征字段必须存在且为数值（部分设备上报 power，映射为 current）
// - 时间戳可选：ISO-8601 字符串或 epoch 秒（数字或字符串），缺失时使用 now
// - 任一必填字段缺失或非数值时整条拒绝
func ParseReading(deviceID string, payload []byte, now time.Time) (*Reading, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	// 字段映射：power -> current
	if _, ok := raw["current"]; !ok {
		if v, ok := raw["power"]; ok {
			raw["current"] = v
		}
	}

	features := make(map[string]float64, len(FeatureNames))
	for _, name := range FeatureNames {
		v, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("missing required field %q", name)
		}
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		features[name] = f
	}

	ts, err := parseTimestamp(raw["timestamp"], now)
	if err != nil {
		return nil, fmt.Errorf("field \"timestamp\": %w", err)
	}

	return &Reading{
		DeviceID:  deviceID,
		Features:  features,
		Timestamp: ts,
	}, nil
}

// toFloat 将JSON值转换为float64
func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("non-numeric value of type %T", v)
	}
}

// parseTimestamp 解析时间戳（ISO-8601 或 epoch 秒；缺失时使用 now）
func parseTimestamp(v interface{}, now time.Time) (time.Time, error) {
	switch val := v.(type) {
	case nil:
		return now, nil
	case float64:
		return time.Unix(int64(val), 0).UTC(), nil
	case string:
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return t.UTC(), nil
		}
		if epoch, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Unix(int64(epoch), 0).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", val)
	default:
		return time.Time{}, fmt.Errorf("unrecognized timestamp of type %T", v)
	}
}
