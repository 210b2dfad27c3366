package health_test

import (
	"testing"

	"machine-guard/internal/health"

	"github.com/stretchr/testify/require"
)

func TestMapHealth_AnchorPoints(t *testing.T) {
	calib := health.ScoreCalibration{MinAnom: -0.2, MaxNice: 0.15}

	require.Equal(t, 0.0, health.MapHealth(-0.2, calib))
	require.Equal(t, 50.0, health.MapHealth(0.0, calib))
	require.Equal(t, 100.0, health.MapHealth(0.15, calib))
}

func TestMapHealth_ClampsBeyondAnchors(t *testing.T) {
	calib := health.ScoreCalibration{MinAnom: -0.2, MaxNice: 0.15}

	require.Equal(t, 0.0, health.MapHealth(-5.0, calib))
	require.Equal(t, 100.0, health.MapHealth(5.0, calib))
}

func TestMapHealth_Monotonic(t *testing.T) {
	calib := health.ScoreCalibration{MinAnom: -0.25, MaxNice: 0.1}

	prev := -1.0
	for raw := -0.5; raw <= 0.5; raw += 0.001 {
		h := health.MapHealth(raw, calib)
		require.GreaterOrEqual(t, h, prev, "health must be non-decreasing at raw=%f", raw)
		require.GreaterOrEqual(t, h, 0.0)
		require.LessOrEqual(t, h, 100.0)
		prev = h
	}
}

func TestMapHealth_InterpolatesLinearly(t *testing.T) {
	calib := health.ScoreCalibration{MinAnom: -0.2, MaxNice: 0.1}

	// halfway between lower anchor and boundary
	require.InDelta(t, 25.0, health.MapHealth(-0.1, calib), 1e-9)
	// halfway between boundary and upper anchor
	require.InDelta(t, 75.0, health.MapHealth(0.05, calib), 1e-9)
}

func TestMapHealth_DegenerateAnchorsClampNotInvert(t *testing.T) {
	// both anchors above the decision boundary
	calib := health.ScoreCalibration{MinAnom: 0.05, MaxNice: 0.2}
	require.True(t, calib.Degenerate())

	require.Equal(t, 0.0, health.MapHealth(-1.0, calib))
	require.Equal(t, 50.0, health.MapHealth(0.0, calib))
	require.Equal(t, 100.0, health.MapHealth(0.3, calib))

	// still monotonic through the degenerate region
	prev := -1.0
	for raw := -0.1; raw <= 0.3; raw += 0.001 {
		h := health.MapHealth(raw, calib)
		require.GreaterOrEqual(t, h, prev)
		prev = h
	}
}

func TestScoreCalibration_Degenerate(t *testing.T) {
	require.False(t, health.ScoreCalibration{MinAnom: -0.1, MaxNice: 0.1}.Degenerate())
	require.True(t, health.ScoreCalibration{MinAnom: 0.0, MaxNice: 0.1}.Degenerate())
	require.True(t, health.ScoreCalibration{MinAnom: -0.1, MaxNice: -0.01}.Degenerate())
	require.True(t, health.ScoreCalibration{MinAnom: 0.1, MaxNice: 0.05}.Degenerate())
}
