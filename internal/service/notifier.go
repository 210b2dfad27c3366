package service

import (
	"context"
	"encoding/json"
	"fmt"

	"machine-guard/internal/cache"
	"machine-guard/internal/config"
	"machine-guard/internal/models"
	"machine-guard/internal/repository"

	"go.uber.org/zap"

	mqttcommon "machine-guard/internal/mqtt"
)

// StatusNotifier 对外通知实现（实现 guard.Notifier 接口）
//
// Notify: 发布 MQTT 通知 + 记录报警事件 + 追加报警流；
// UpdateStatus: 刷新 Redis 实时状态缓存
type StatusNotifier struct {
	config      *config.Config
	mqttClient  *mqttcommon.Client
	statusCache *cache.StatusCache
	alertRepo   *repository.AlertRepository
	logger      *zap.Logger
}

// NewStatusNotifier 创建通知器
func NewStatusNotifier(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	statusCache *cache.StatusCache,
	alertRepo *repository.AlertRepository,
	logger *zap.Logger,
) *StatusNotifier {
	return &StatusNotifier{
		config:      cfg,
		mqttClient:  mqttClient,
		statusCache: statusCache,
		alertRepo:   alertRepo,
		logger:      logger,
	}
}

// Notify 发布报警通知
func (n *StatusNotifier) Notify(ctx context.Context, payload *models.StatusPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/status", n.config.Guard.Topics.StatusPrefix, payload.DeviceID)
	if err := n.mqttClient.Publish(topic, n.config.MQTT.QoS, false, jsonData); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	// 事件记录与报警流为尽力而为，不阻断通知
	if _, err := n.alertRepo.InsertEvent(ctx, payload); err != nil {
		n.logger.Error("Failed to record alert event",
			zap.String("device_id", payload.DeviceID),
			zap.Error(err),
		)
	}
	if _, err := n.statusCache.PublishAlert(ctx, payload); err != nil {
		n.logger.Error("Failed to publish alert to stream",
			zap.String("device_id", payload.DeviceID),
			zap.Error(err),
		)
	}

	return nil
}

// UpdateStatus 刷新实时状态缓存
func (n *StatusNotifier) UpdateStatus(ctx context.Context, payload *models.StatusPayload) error {
	return n.statusCache.SetStatus(ctx, payload)
}
