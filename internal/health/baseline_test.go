package health_test

import (
	"testing"

	"machine-guard/internal/health"
	"machine-guard/internal/models"

	"github.com/stretchr/testify/require"
)

func TestComputeBaseline_MeanAndStd(t *testing.T) {
	features := []string{"temperature", "vibration"}
	samples := [][]float64{
		{10, 1},
		{20, 1},
		{30, 1},
	}

	b := health.ComputeBaseline(features, samples)

	require.InDelta(t, 20.0, b.Mean["temperature"], 1e-9)
	// population std of {10,20,30}
	require.InDelta(t, 8.16496580927726, b.Std["temperature"], 1e-9)
	require.InDelta(t, 1.0, b.Mean["vibration"], 1e-9)
	require.InDelta(t, 0.0, b.Std["vibration"], 1e-9)
}

func TestRankContributions_ZeroDeviationAtMean(t *testing.T) {
	samples := [][]float64{
		{25, 40, 100, 0.5, 2.0},
		{26, 42, 110, 0.6, 2.1},
		{24, 38, 90, 0.4, 1.9},
	}
	b := health.ComputeBaseline(models.FeatureNames, samples)

	reading := &models.Reading{
		DeviceID: "dev-1",
		Features: map[string]float64{
			"temperature": b.Mean["temperature"],
			"humidity":    b.Mean["humidity"],
			"gas":         b.Mean["gas"],
			"vibration":   b.Mean["vibration"],
			"current":     b.Mean["current"],
		},
	}

	contribs := b.RankContributions(reading)
	require.Len(t, contribs, len(models.FeatureNames))
	for i, c := range contribs {
		require.InDelta(t, 0.0, c.Deviation, 1e-9)
		// all tied at zero: declared order preserved
		require.Equal(t, models.FeatureNames[i], c.Feature)
	}
}

func TestRankContributions_DescendingOrder(t *testing.T) {
	b := &health.FeatureBaseline{
		Features: models.FeatureNames,
		Mean:     map[string]float64{"temperature": 25, "humidity": 40, "gas": 100, "vibration": 0.5, "current": 2},
		Std:      map[string]float64{"temperature": 1, "humidity": 2, "gas": 10, "vibration": 0.1, "current": 0.5},
	}

	reading := &models.Reading{
		DeviceID: "dev-1",
		Features: map[string]float64{
			"temperature": 30,  // 5.0 std
			"humidity":    42,  // 1.0 std
			"gas":         100, // 0.0 std
			"vibration":   0.8, // 3.0 std
			"current":     2.5, // 1.0 std
		},
	}

	contribs := b.RankContributions(reading)
	require.Equal(t, "temperature", contribs[0].Feature)
	require.InDelta(t, 5.0, contribs[0].Deviation, 1e-9)
	require.Equal(t, "vibration", contribs[1].Feature)
	require.InDelta(t, 3.0, contribs[1].Deviation, 1e-9)
	// humidity and current tie at 1.0: humidity declared first
	require.Equal(t, "humidity", contribs[2].Feature)
	require.Equal(t, "current", contribs[3].Feature)
	require.Equal(t, "gas", contribs[4].Feature)
}

func TestRankContributions_ZeroStdDoesNotBlowUp(t *testing.T) {
	b := &health.FeatureBaseline{
		Features: []string{"temperature"},
		Mean:     map[string]float64{"temperature": 25},
		Std:      map[string]float64{"temperature": 0},
	}

	reading := &models.Reading{
		DeviceID: "dev-1",
		Features: map[string]float64{"temperature": 25.001},
	}

	contribs := b.RankContributions(reading)
	require.Len(t, contribs, 1)
	require.False(t, contribs[0].Deviation != contribs[0].Deviation, "deviation must not be NaN")
	require.Greater(t, contribs[0].Deviation, 0.0)
}
