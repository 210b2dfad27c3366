package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"machine-guard/internal/config"
	"machine-guard/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StatusCache 设备实时状态缓存
//
// 每条监测读数的完整状态载荷写入 Redis（带 TTL），
// 看板读取当前状态时无需消费通知主题
type StatusCache struct {
	client *redis.Client
	cfg    *config.GuardConfig
	logger *zap.Logger
}

// NewStatusCache 创建状态缓存
func NewStatusCache(client *redis.Client, cfg *config.GuardConfig, logger *zap.Logger) *StatusCache {
	return &StatusCache{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// statusKey 构建状态缓存键
func (c *StatusCache) statusKey(deviceID string) string {
	return c.cfg.Cache.StatusKeyPrefix + deviceID + c.cfg.Cache.StatusSuffix
}

// SetStatus 写入设备实时状态（带 TTL）
func (c *StatusCache) SetStatus(ctx context.Context, payload *models.StatusPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	ttl := time.Duration(c.cfg.Cache.StatusTTL) * time.Second
	if err := c.client.Set(ctx, c.statusKey(payload.DeviceID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	return nil
}

// GetStatus 读取设备实时状态（无缓存时返回 nil）
func (c *StatusCache) GetStatus(ctx context.Context, deviceID string) (*models.StatusPayload, error) {
	val, err := c.client.Get(ctx, c.statusKey(deviceID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	payload := &models.StatusPayload{}
	if err := json.Unmarshal([]byte(val), payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return payload, nil
}

// PublishAlert 将报警事件追加到 Redis Streams（下游消费）
func (c *StatusCache) PublishAlert(ctx context.Context, payload *models.StatusPayload) (string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal alert: %w", err)
	}

	id, err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Cache.AlertStream,
		Values: map[string]interface{}{
			"data":      string(jsonData),
			"device_id": payload.DeviceID,
			"risk":      string(payload.Risk),
			"timestamp": payload.Timestamp,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish alert to stream: %w", err)
	}
	return id, nil
}
