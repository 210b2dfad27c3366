package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"machine-guard/internal/models"

	"go.uber.org/zap"
)

// ReadingRepository 传感器读数仓库
type ReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingRepository 创建读数仓库
func NewReadingRepository(db *sql.DB, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{
		db:     db,
		logger: logger,
	}
}

// ReadingRecord 持久化的读数行
type ReadingRecord struct {
	ID          int64
	DeviceID    string
	Temperature float64
	Humidity    float64
	Gas         float64
	Vibration   float64
	Current     float64
	Timestamp   time.Time
}

// Insert 插入一条已校验的读数
func (r *ReadingRepository) Insert(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO sensor_readings (
			device_id, temperature, humidity, gas, vibration, current, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := r.db.ExecContext(ctx, query,
		reading.DeviceID,
		reading.Features["temperature"],
		reading.Features["humidity"],
		reading.Features["gas"],
		reading.Features["vibration"],
		reading.Features["current"],
		reading.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to insert sensor reading: %w", err)
	}
	return nil
}

// GetHistory 按时间倒序读取历史读数
func (r *ReadingRepository) GetHistory(ctx context.Context, deviceID string, limit, offset int) ([]ReadingRecord, error) {
	query := `
		SELECT id, device_id, temperature, humidity, gas, vibration, current, timestamp
		FROM sensor_readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query reading history: %w", err)
	}
	defer rows.Close()

	var records []ReadingRecord
	for rows.Next() {
		var rec ReadingRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.DeviceID,
			&rec.Temperature,
			&rec.Humidity,
			&rec.Gas,
			&rec.Vibration,
			&rec.Current,
			&rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reading rows: %w", err)
	}

	return records, nil
}

// ReadingStats 读数聚合统计
type ReadingStats struct {
	Count          int64
	AvgTemperature float64
	AvgHumidity    float64
	AvgGas         float64
	AvgVibration   float64
	AvgCurrent     float64
}

// GetStats 读取单设备的聚合统计
func (r *ReadingRepository) GetStats(ctx context.Context, deviceID string) (*ReadingStats, error) {
	query := `
		SELECT
			COUNT(id),
			COALESCE(AVG(temperature), 0),
			COALESCE(AVG(humidity), 0),
			COALESCE(AVG(gas), 0),
			COALESCE(AVG(vibration), 0),
			COALESCE(AVG(current), 0)
		FROM sensor_readings
		WHERE device_id = $1
	`

	stats := &ReadingStats{}
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&stats.Count,
		&stats.AvgTemperature,
		&stats.AvgHumidity,
		&stats.AvgGas,
		&stats.AvgVibration,
		&stats.AvgCurrent,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reading stats: %w", err)
	}

	return stats, nil
}

// ListDevices 列出有读数记录的设备
func (r *ReadingRepository) ListDevices(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT device_id FROM sensor_readings ORDER BY device_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan device id: %w", err)
		}
		devices = append(devices, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device rows: %w", err)
	}

	return devices, nil
}
