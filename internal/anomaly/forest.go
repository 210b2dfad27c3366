package anomaly

import (
	"fmt"
	"math"
	"math/rand"
)

// forestNode 隔离树节点
type forestNode struct {
	SplitFeature int         `json:"f,omitempty"`
	SplitValue   float64     `json:"v,omitempty"`
	Left         *forestNode `json:"l,omitempty"`
	Right        *forestNode `json:"r,omitempty"`
	Size         int         `json:"n"`
	Leaf         bool        `json:"leaf,omitempty"`
}

// Forest 隔离森林模型
//
// 异常样本更容易被随机超平面隔离，平均路径更短；
// AnomalyScore 返回 (0,1) 区间的归一化分数，越大越异常
type Forest struct {
	Trees      []*forestNode `json:"trees"`
	SampleSize int           `json:"sample_size"`
}

// FitForest 在标准化样本矩阵上拟合隔离森林
func FitForest(samples [][]float64, numTrees, sampleSize int, rng *rand.Rand) (*Forest, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("insufficient training data: %d samples", len(samples))
	}
	if !hasVariance(samples) {
		return nil, fmt.Errorf("insufficient variance in training data")
	}

	if sampleSize > len(samples) {
		sampleSize = len(samples)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	f := &Forest{
		Trees:      make([]*forestNode, numTrees),
		SampleSize: sampleSize,
	}
	for i := 0; i < numTrees; i++ {
		sub := subsample(samples, sampleSize, rng)
		f.Trees[i] = buildNode(sub, 0, maxDepth, rng)
	}
	return f, nil
}

// AnomalyScore 计算归一化异常分数（越大越异常）
func (f *Forest) AnomalyScore(vec []float64) float64 {
	var avg float64
	for _, root := range f.Trees {
		avg += pathLength(vec, root, 0)
	}
	avg /= float64(len(f.Trees))

	return math.Pow(2, -avg/avgPathLength(float64(f.SampleSize)))
}

// hasVariance 检查是否存在可分割的特征
func hasVariance(samples [][]float64) bool {
	for j := range samples[0] {
		lo, hi := featureRange(samples, j)
		if hi > lo {
			return true
		}
	}
	return false
}

func featureRange(samples [][]float64, feature int) (float64, float64) {
	lo, hi := samples[0][feature], samples[0][feature]
	for _, row := range samples[1:] {
		if row[feature] < lo {
			lo = row[feature]
		}
		if row[feature] > hi {
			hi = row[feature]
		}
	}
	return lo, hi
}

// subsample 无放回随机子采样
func subsample(samples [][]float64, size int, rng *rand.Rand) [][]float64 {
	if len(samples) <= size {
		return samples
	}
	perm := rng.Perm(len(samples))
	sub := make([][]float64, size)
	for i := 0; i < size; i++ {
		sub[i] = samples[perm[i]]
	}
	return sub
}

// buildNode 递归构建隔离树节点
func buildNode(data [][]float64, depth, maxDepth int, rng *rand.Rand) *forestNode {
	if len(data) <= 1 || depth >= maxDepth {
		return &forestNode{Leaf: true, Size: len(data)}
	}

	// 只在有取值范围的特征中随机选取分割点
	splittable := make([]int, 0, len(data[0]))
	for j := range data[0] {
		if lo, hi := featureRange(data, j); hi > lo {
			splittable = append(splittable, j)
		}
	}
	if len(splittable) == 0 {
		return &forestNode{Leaf: true, Size: len(data)}
	}

	feature := splittable[rng.Intn(len(splittable))]
	lo, hi := featureRange(data, feature)
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &forestNode{
		SplitFeature: feature,
		SplitValue:   split,
		Left:         buildNode(left, depth+1, maxDepth, rng),
		Right:        buildNode(right, depth+1, maxDepth, rng),
		Size:         len(data),
	}
}

// pathLength 计算样本在单棵树中的路径长度
func pathLength(vec []float64, node *forestNode, depth int) float64 {
	if node.Leaf {
		return float64(depth) + avgPathLength(float64(node.Size))
	}
	if vec[node.SplitFeature] < node.SplitValue {
		return pathLength(vec, node.Left, depth+1)
	}
	return pathLength(vec, node.Right, depth+1)
}

// avgPathLength 大小为n的子树中不成功搜索的期望路径长度 c(n)
func avgPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	const euler = 0.5772156649
	h := math.Log(n-1) + euler
	return 2*h - 2*(n-1)/n
}
