package anomaly

import (
	"fmt"
	"math"
)

// stdEpsilon 标准差下限，避免除零
const stdEpsilon = 1e-6

// StandardScaler 特征标准化变换（中心化/缩放）
//
// 在校准样本集上拟合，之后的每次打分调用必须使用同一变换
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler 在样本矩阵上拟合标准化变换
func FitScaler(samples [][]float64) (*StandardScaler, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to fit scaler")
	}

	dims := len(samples[0])
	mean := make([]float64, dims)
	std := make([]float64, dims)

	for _, row := range samples {
		if len(row) != dims {
			return nil, fmt.Errorf("inconsistent feature dimensions: got %d, want %d", len(row), dims)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(samples))
	for j := range mean {
		mean[j] /= n
	}

	for _, row := range samples {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] < stdEpsilon {
			std[j] = stdEpsilon
		}
	}

	return &StandardScaler{Mean: mean, Std: std}, nil
}

// Transform 标准化单个特征向量
func (s *StandardScaler) Transform(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for j, v := range vec {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll 标准化样本矩阵
func (s *StandardScaler) TransformAll(samples [][]float64) [][]float64 {
	out := make([][]float64, len(samples))
	for i, row := range samples {
		out[i] = s.Transform(row)
	}
	return out
}
