package models_test

import (
	"testing"
	"time"

	"machine-guard/internal/models"

	"github.com/stretchr/testify/require"
)

var parseNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestParseReading_Valid(t *testing.T) {
	payload := []byte(`{
		"temperature": 25.5,
		"humidity": 41.2,
		"gas": 130,
		"vibration": 0.52,
		"current": 2.1,
		"timestamp": "2026-08-30T11:59:30Z"
	}`)

	r, err := models.ParseReading("machine-01", payload, parseNow)
	require.NoError(t, err)
	require.Equal(t, "machine-01", r.DeviceID)
	require.Equal(t, 25.5, r.Features["temperature"])
	require.Equal(t, 130.0, r.Features["gas"])
	require.Equal(t, time.Date(2026, 8, 30, 11, 59, 30, 0, time.UTC), r.Timestamp)
}

func TestParseReading_PowerMapsToCurrent(t *testing.T) {
	payload := []byte(`{
		"temperature": 25.5,
		"humidity": 41.2,
		"gas": 130,
		"vibration": 0.52,
		"power": 3.4
	}`)

	r, err := models.ParseReading("machine-01", payload, parseNow)
	require.NoError(t, err)
	require.Equal(t, 3.4, r.Features["current"])
}

func TestParseReading_CurrentWinsOverPower(t *testing.T) {
	payload := []byte(`{
		"temperature": 25.5,
		"humidity": 41.2,
		"gas": 130,
		"vibration": 0.52,
		"current": 2.1,
		"power": 9.9
	}`)

	r, err := models.ParseReading("machine-01", payload, parseNow)
	require.NoError(t, err)
	require.Equal(t, 2.1, r.Features["current"])
}

func TestParseReading_NumericStringsAccepted(t *testing.T) {
	payload := []byte(`{
		"temperature": "25.5",
		"humidity": 41.2,
		"gas": "130",
		"vibration": 0.52,
		"current": 2.1
	}`)

	r, err := models.ParseReading("machine-01", payload, parseNow)
	require.NoError(t, err)
	require.Equal(t, 25.5, r.Features["temperature"])
}

func TestParseReading_MissingFieldRejected(t *testing.T) {
	payload := []byte(`{
		"temperature": 25.5,
		"humidity": 41.2,
		"gas": 130,
		"vibration": 0.52
	}`)

	_, err := models.ParseReading("machine-01", payload, parseNow)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"current"`)
}

func TestParseReading_NonNumericRejected(t *testing.T) {
	payload := []byte(`{
		"temperature": "hot",
		"humidity": 41.2,
		"gas": 130,
		"vibration": 0.52,
		"current": 2.1
	}`)

	_, err := models.ParseReading("machine-01", payload, parseNow)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"temperature"`)
}

func TestParseReading_InvalidJSONRejected(t *testing.T) {
	_, err := models.ParseReading("machine-01", []byte(`{not json`), parseNow)
	require.Error(t, err)
}

func TestParseReading_TimestampVariants(t *testing.T) {
	body := `"temperature": 25, "humidity": 40, "gas": 120, "vibration": 0.5, "current": 2`

	tests := []struct {
		name    string
		ts      string
		want    time.Time
		wantErr bool
	}{
		{"epoch number", `"timestamp": 1700000000`, time.Unix(1700000000, 0).UTC(), false},
		{"epoch string", `"timestamp": "1700000000"`, time.Unix(1700000000, 0).UTC(), false},
		{"iso8601", `"timestamp": "2026-08-30T10:00:00Z"`, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), false},
		{"garbage", `"timestamp": "yesterday"`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(`{` + body + `, ` + tt.ts + `}`)
			r, err := models.ParseReading("machine-01", payload, parseNow)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, r.Timestamp)
		})
	}
}

func TestParseReading_MissingTimestampUsesIngestionTime(t *testing.T) {
	payload := []byte(`{"temperature": 25, "humidity": 40, "gas": 120, "vibration": 0.5, "current": 2}`)

	r, err := models.ParseReading("machine-01", payload, parseNow)
	require.NoError(t, err)
	require.Equal(t, parseNow, r.Timestamp)
}

func TestReading_VectorFollowsDeclaredOrder(t *testing.T) {
	r := &models.Reading{
		Features: map[string]float64{
			"current":     5,
			"gas":         3,
			"humidity":    2,
			"temperature": 1,
			"vibration":   4,
		},
	}
	require.Equal(t, []float64{1, 2, 3, 4, 5}, r.Vector())
}
