package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"machine-guard/internal/config"
	"machine-guard/internal/guard"
	"machine-guard/internal/models"
	"machine-guard/internal/repository"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPPoller HTTP轮询采集器
//
// 部分部署的设备只把读数写入一个云端实时数据库，
// 轮询其 REST 端点获取 {device_id: reading} 数据树并喂给同一注册表；
// 重复投递由设备监控器的时间戳幂等检查过滤
type HTTPPoller struct {
	config      *config.Config
	client      *resty.Client
	registry    *guard.Registry
	readingRepo *repository.ReadingRepository
	logger      *zap.Logger
}

// NewHTTPPoller 创建HTTP轮询采集器
func NewHTTPPoller(
	cfg *config.Config,
	registry *guard.Registry,
	readingRepo *repository.ReadingRepository,
	logger *zap.Logger,
) *HTTPPoller {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2)

	return &HTTPPoller{
		config:      cfg,
		client:      client,
		registry:    registry,
		readingRepo: readingRepo,
		logger:      logger,
	}
}

// Start 启动轮询循环
func (p *HTTPPoller) Start(ctx context.Context) error {
	interval := time.Duration(p.config.Guard.Poller.IntervalSecs) * time.Second
	p.logger.Info("HTTP poller started",
		zap.String("url", p.config.Guard.Poller.URL),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("HTTP poller stopped")
			return nil
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				// 单次轮询失败只记录，下个周期重试
				p.logger.Warn("Poll failed", zap.Error(err))
			}
		}
	}
}

// pollOnce 拉取一次数据树并派发所有设备的读数
func (p *HTTPPoller) pollOnce(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get(p.config.Guard.Poller.URL)
	if err != nil {
		return fmt.Errorf("failed to poll telemetry endpoint: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("telemetry endpoint returned status %d", resp.StatusCode())
	}

	// 结构假设: {"device-1": {fields...}, "device-2": {fields...}}
	var tree map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &tree); err != nil {
		return fmt.Errorf("failed to decode telemetry tree: %w", err)
	}

	now := time.Now().UTC()
	for deviceID, raw := range tree {
		reading, err := models.ParseReading(deviceID, raw, now)
		if err != nil {
			p.logger.Warn("Rejected malformed reading",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
			continue
		}

		if err := p.readingRepo.Insert(ctx, reading); err != nil {
			p.logger.Error("Failed to persist reading",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
		}

		p.registry.Dispatch(reading)
	}

	return nil
}
