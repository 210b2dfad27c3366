package repository_test

import (
	"context"
	"testing"
	"time"

	"machine-guard/internal/models"
	"machine-guard/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadingRepository_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewReadingRepository(db, zap.NewNop())
	ts := time.Unix(1700000000, 0).UTC()

	reading := &models.Reading{
		DeviceID: "machine-01",
		Features: map[string]float64{
			"temperature": 25.5,
			"humidity":    41.2,
			"gas":         130,
			"vibration":   0.52,
			"current":     2.1,
		},
		Timestamp: ts,
	}

	mock.ExpectExec("INSERT INTO sensor_readings").
		WithArgs("machine-01", 25.5, 41.2, 130.0, 0.52, 2.1, ts).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Insert(context.Background(), reading)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingRepository_GetHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewReadingRepository(db, zap.NewNop())
	ts := time.Unix(1700000000, 0).UTC()

	rows := sqlmock.NewRows(
		[]string{"id", "device_id", "temperature", "humidity", "gas", "vibration", "current", "timestamp"},
	).
		AddRow(2, "machine-01", 26.0, 42.0, 131.0, 0.53, 2.2, ts.Add(time.Second)).
		AddRow(1, "machine-01", 25.5, 41.2, 130.0, 0.52, 2.1, ts)

	mock.ExpectQuery("SELECT id, device_id, temperature, humidity, gas, vibration, current, timestamp").
		WithArgs("machine-01", 10, 0).
		WillReturnRows(rows)

	records, err := repo.GetHistory(context.Background(), "machine-01", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, int64(2), records[0].ID)
	require.Equal(t, 26.0, records[0].Temperature)
	require.Equal(t, "machine-01", records[1].DeviceID)
}

func TestReadingRepository_GetStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewReadingRepository(db, zap.NewNop())

	mock.ExpectQuery("SELECT").
		WithArgs("machine-01").
		WillReturnRows(sqlmock.NewRows(
			[]string{"count", "avg_temp", "avg_hum", "avg_gas", "avg_vib", "avg_cur"},
		).AddRow(100, 25.3, 40.8, 128.5, 0.51, 2.05))

	stats, err := repo.GetStats(context.Background(), "machine-01")
	require.NoError(t, err)
	require.Equal(t, int64(100), stats.Count)
	require.Equal(t, 25.3, stats.AvgTemperature)
	require.Equal(t, 2.05, stats.AvgCurrent)
}

func TestReadingRepository_ListDevices(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewReadingRepository(db, zap.NewNop())

	mock.ExpectQuery("SELECT DISTINCT device_id FROM sensor_readings").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).
			AddRow("machine-01").
			AddRow("machine-02"))

	devices, err := repo.ListDevices(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"machine-01", "machine-02"}, devices)
}
