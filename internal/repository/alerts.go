package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"machine-guard/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertRepository 报警事件仓库
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository 创建报警事件仓库
func NewAlertRepository(db *sql.DB, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// InsertEvent 记录一条已发出的报警通知，返回事件ID
func (r *AlertRepository) InsertEvent(ctx context.Context, payload *models.StatusPayload) (string, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	eventID := uuid.New().String()
	query := `
		INSERT INTO alert_events (
			event_id, device_id, risk, health, primary_issue, payload, triggered_at
		) VALUES ($1, $2, $3, $4, $5, $6, TO_TIMESTAMP($7))
	`

	if _, err := r.db.ExecContext(ctx, query,
		eventID,
		payload.DeviceID,
		string(payload.Risk),
		payload.Health,
		payload.PrimaryIssue,
		payloadJSON,
		payload.Timestamp,
	); err != nil {
		return "", fmt.Errorf("failed to insert alert event: %w", err)
	}

	return eventID, nil
}

// AlertEvent 报警事件行
type AlertEvent struct {
	EventID      string
	DeviceID     string
	Risk         string
	Health       float64
	PrimaryIssue string
}

// GetRecentEvents 按时间倒序读取设备最近的报警事件
func (r *AlertRepository) GetRecentEvents(ctx context.Context, deviceID string, limit int) ([]AlertEvent, error) {
	query := `
		SELECT event_id, device_id, risk, health, primary_issue
		FROM alert_events
		WHERE device_id = $1
		ORDER BY triggered_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert events: %w", err)
	}
	defer rows.Close()

	var events []AlertEvent
	for rows.Next() {
		var ev AlertEvent
		if err := rows.Scan(&ev.EventID, &ev.DeviceID, &ev.Risk, &ev.Health, &ev.PrimaryIssue); err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert events: %w", err)
	}

	return events, nil
}
