package consumer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"machine-guard/internal/config"
	"machine-guard/internal/guard"
	"machine-guard/internal/models"
	"machine-guard/internal/repository"

	"go.uber.org/zap"

	mqttcommon "machine-guard/internal/mqtt"
)

// MQTTConsumer MQTT消息消费者
//
// 采集边界：解析并校验传感器载荷，产出类型化的 Reading 或整条拒绝，
// 将核心与载荷形态漂移解耦；畸形消息记录日志后跳过，不改变任何设备状态
type MQTTConsumer struct {
	config      *config.Config
	mqttClient  *mqttcommon.Client
	registry    *guard.Registry
	readingRepo *repository.ReadingRepository
	logger      *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	registry *guard.Registry,
	readingRepo *repository.ReadingRepository,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:      cfg,
		mqttClient:  mqttClient,
		registry:    registry,
		readingRepo: readingRepo,
		logger:      logger,
	}
}

// Start 启动消费者
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.Guard.Topics.Sensor, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to sensor topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.config.Guard.Topics.Sensor),
	)

	// 等待上下文取消
	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop() {
	if err := c.mqttClient.Unsubscribe(c.config.Guard.Topics.Sensor); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
}

// handleMessage 处理MQTT消息
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	// 主题格式: sensors/{device_id}/data
	deviceID, err := extractDeviceID(topic)
	if err != nil {
		c.logger.Warn("Invalid sensor topic", zap.String("topic", topic))
		return err
	}

	reading, err := models.ParseReading(deviceID, payload, time.Now().UTC())
	if err != nil {
		// 畸形载荷：记录后跳过，不向核心转发
		c.logger.Warn("Rejected malformed reading",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return nil
	}

	// 读数入库失败不阻断监测管线
	if err := c.readingRepo.Insert(context.Background(), reading); err != nil {
		c.logger.Error("Failed to persist reading",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}

	c.registry.Dispatch(reading)
	return nil
}

// extractDeviceID 从主题中提取设备标识符
func extractDeviceID(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[1], nil
}
