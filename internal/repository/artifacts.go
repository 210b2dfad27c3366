package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"machine-guard/internal/models"

	"go.uber.org/zap"
)

// ArtifactRepository 生命周期状态与校准产物仓库
type ArtifactRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewArtifactRepository 创建产物仓库
func NewArtifactRepository(db *sql.DB, logger *zap.Logger) *ArtifactRepository {
	return &ArtifactRepository{
		db:     db,
		logger: logger,
	}
}

// SaveState 持久化设备生命周期状态
func (r *ArtifactRepository) SaveState(ctx context.Context, deviceID string, state models.DeviceState) error {
	query := `
		INSERT INTO device_states (device_id, state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (device_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, deviceID, string(state)); err != nil {
		return fmt.Errorf("failed to save device state: %w", err)
	}
	return nil
}

// LoadState 读取设备生命周期状态（无记录时返回 NEW）
func (r *ArtifactRepository) LoadState(ctx context.Context, deviceID string) (models.DeviceState, error) {
	query := `SELECT state FROM device_states WHERE device_id = $1`

	var state string
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(&state)
	if err == sql.ErrNoRows {
		return models.StateNew, nil
	}
	if err != nil {
		return models.StateNew, fmt.Errorf("failed to load device state: %w", err)
	}

	switch models.DeviceState(state) {
	case models.StateNew, models.StateCalibrating, models.StateMonitoring:
		return models.DeviceState(state), nil
	default:
		return models.StateNew, fmt.Errorf("unknown persisted state %q", state)
	}
}

// SaveArtifacts 持久化校准产物
// 单事务写入：并发读取方不会观察到半写的产物集
func (r *ArtifactRepository) SaveArtifacts(ctx context.Context, deviceID string, artifact *models.CalibrationArtifact) error {
	meanJSON, err := json.Marshal(artifact.BaselineMean)
	if err != nil {
		return fmt.Errorf("failed to marshal baseline mean: %w", err)
	}
	stdJSON, err := json.Marshal(artifact.BaselineStd)
	if err != nil {
		return fmt.Errorf("failed to marshal baseline std: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO calibration_artifacts (
			device_id, min_anom, max_nice, baseline_mean, baseline_std,
			scaler, model, trained_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (device_id)
		DO UPDATE SET
			min_anom = EXCLUDED.min_anom,
			max_nice = EXCLUDED.max_nice,
			baseline_mean = EXCLUDED.baseline_mean,
			baseline_std = EXCLUDED.baseline_std,
			scaler = EXCLUDED.scaler,
			model = EXCLUDED.model,
			trained_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, query,
		deviceID,
		artifact.MinAnom,
		artifact.MaxNice,
		meanJSON,
		stdJSON,
		artifact.Scaler,
		artifact.Model,
	); err != nil {
		return fmt.Errorf("failed to save calibration artifacts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit artifacts: %w", err)
	}

	r.logger.Debug("Calibration artifacts saved",
		zap.String("device_id", deviceID),
	)
	return nil
}

// LoadArtifacts 读取校准产物（缺失或损坏返回错误，调用方回退重新校准）
func (r *ArtifactRepository) LoadArtifacts(ctx context.Context, deviceID string) (*models.CalibrationArtifact, error) {
	query := `
		SELECT min_anom, max_nice, baseline_mean, baseline_std, scaler, model
		FROM calibration_artifacts
		WHERE device_id = $1
	`

	artifact := &models.CalibrationArtifact{}
	var meanJSON, stdJSON []byte

	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&artifact.MinAnom,
		&artifact.MaxNice,
		&meanJSON,
		&stdJSON,
		&artifact.Scaler,
		&artifact.Model,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no calibration artifacts for device %s", deviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration artifacts: %w", err)
	}

	if err := json.Unmarshal(meanJSON, &artifact.BaselineMean); err != nil {
		return nil, fmt.Errorf("corrupt baseline mean: %w", err)
	}
	if err := json.Unmarshal(stdJSON, &artifact.BaselineStd); err != nil {
		return nil, fmt.Errorf("corrupt baseline std: %w", err)
	}

	return artifact, nil
}
