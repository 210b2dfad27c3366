package anomaly

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
)

// MinTrainingSamples 训练所需的最少校准样本数
const MinTrainingSamples = 10

// Options 训练参数
type Options struct {
	Trees         int     // 隔离树数量
	SampleSize    int     // 每棵树的子采样大小
	Contamination float64 // 训练数据中预期的异常比例
	Seed          int64   // 随机种子（可复现训练）
}

// DefaultOptions 默认训练参数
func DefaultOptions() Options {
	return Options{
		Trees:         200,
		SampleSize:    256,
		Contamination: 0.05,
		Seed:          42,
	}
}

// Scorer 包装已拟合的离群点模型与特征缩放变换
//
// 打分约定：DecisionScore 越大越正常，0.0 为内点/外点决策边界
// （训练分数按 contamination 分位偏移，使边界落在 0）
type Scorer struct {
	scaler      *StandardScaler
	forest      *Forest
	offset      float64
	trainScores []float64
}

// scorerModel 模型二进制块的序列化结构
type scorerModel struct {
	Forest *Forest `json:"forest"`
	Offset float64 `json:"offset"`
}

// FitScorer 在校准样本集上拟合缩放变换与离群点模型
func FitScorer(samples [][]float64, opts Options) (*Scorer, error) {
	if len(samples) < MinTrainingSamples {
		return nil, fmt.Errorf("insufficient training data: %d samples, need at least %d",
			len(samples), MinTrainingSamples)
	}

	scaler, err := FitScaler(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	scaled := scaler.TransformAll(samples)

	rng := rand.New(rand.NewSource(opts.Seed))
	forest, err := FitForest(scaled, opts.Trees, opts.SampleSize, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to fit forest: %w", err)
	}

	// 训练集原始分数：-anomalyScore，越大越正常
	raw := make([]float64, len(scaled))
	for i, row := range scaled {
		raw[i] = -forest.AnomalyScore(row)
	}

	// 偏移量使 contamination 比例的训练样本落在边界 0 以下
	offset := Percentile(raw, opts.Contamination*100)

	s := &Scorer{
		scaler:      scaler,
		forest:      forest,
		offset:      offset,
		trainScores: make([]float64, len(raw)),
	}
	for i, v := range raw {
		s.trainScores[i] = v - offset
	}
	return s, nil
}

// DecisionScore 计算特征向量的决策分数（越大越正常，0为边界）
func (s *Scorer) DecisionScore(vec []float64) float64 {
	scaled := s.scaler.Transform(vec)
	return -s.forest.AnomalyScore(scaled) - s.offset
}

// TrainScores 训练集的决策分数（用于推导健康度锚点）
func (s *Scorer) TrainScores() []float64 {
	return s.trainScores
}

// MarshalArtifacts 序列化缩放变换与模型为不透明二进制块
func (s *Scorer) MarshalArtifacts() (scalerBlob []byte, modelBlob []byte, err error) {
	scalerBlob, err = json.Marshal(s.scaler)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal scaler: %w", err)
	}
	modelBlob, err = json.Marshal(scorerModel{Forest: s.forest, Offset: s.offset})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal model: %w", err)
	}
	return scalerBlob, modelBlob, nil
}

// LoadScorer 从持久化的二进制块恢复打分器
func LoadScorer(scalerBlob, modelBlob []byte) (*Scorer, error) {
	var scaler StandardScaler
	if err := json.Unmarshal(scalerBlob, &scaler); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scaler: %w", err)
	}
	if len(scaler.Mean) == 0 || len(scaler.Mean) != len(scaler.Std) {
		return nil, fmt.Errorf("corrupt scaler artifact")
	}

	var model scorerModel
	if err := json.Unmarshal(modelBlob, &model); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if model.Forest == nil || len(model.Forest.Trees) == 0 {
		return nil, fmt.Errorf("corrupt model artifact")
	}

	return &Scorer{
		scaler: &scaler,
		forest: model.Forest,
		offset: model.Offset,
	}, nil
}

// Percentile 线性插值分位数（p取0-100）
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
