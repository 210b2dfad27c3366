package health

import (
	"math"
	"sort"

	"machine-guard/internal/models"
)

// stdEpsilon 标准差下限，避免除零
const stdEpsilon = 1e-6

// FeatureBaseline 每设备的均值/标准差基线
//
// 由一次成功训练产生，重新训练前不可变
type FeatureBaseline struct {
	Features []string
	Mean     map[string]float64
	Std      map[string]float64
}

// ComputeBaseline 从校准样本集推导基线
// samples 的列顺序必须与 features 一致
func ComputeBaseline(features []string, samples [][]float64) *FeatureBaseline {
	b := &FeatureBaseline{
		Features: features,
		Mean:     make(map[string]float64, len(features)),
		Std:      make(map[string]float64, len(features)),
	}
	if len(samples) == 0 {
		return b
	}

	n := float64(len(samples))
	for j, name := range features {
		var sum float64
		for _, row := range samples {
			sum += row[j]
		}
		mean := sum / n

		var sq float64
		for _, row := range samples {
			d := row[j] - mean
			sq += d * d
		}

		b.Mean[name] = mean
		b.Std[name] = math.Sqrt(sq / n)
	}
	return b
}

// Contribution 单特征对异常的贡献（标准化偏差）
type Contribution struct {
	Feature   string
	Deviation float64
}

// RankContributions 按标准化偏差降序排列各特征的贡献度
//
// 偏差为 |value - mean| / max(std, ε)；
// 偏差相同时按特征声明顺序裁决，保证确定性
func (b *FeatureBaseline) RankContributions(reading *models.Reading) []Contribution {
	contribs := make([]Contribution, 0, len(b.Features))
	for _, name := range b.Features {
		std := b.Std[name]
		if std < stdEpsilon {
			std = stdEpsilon
		}
		dev := math.Abs(reading.Features[name]-b.Mean[name]) / std
		contribs = append(contribs, Contribution{Feature: name, Deviation: dev})
	}

	// 稳定排序：输入已按声明顺序排列，平局时顺序保持
	sort.SliceStable(contribs, func(i, j int) bool {
		return contribs[i].Deviation > contribs[j].Deviation
	})
	return contribs
}
