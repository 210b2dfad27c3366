package service

import (
	"context"
	"database/sql"
	"fmt"

	"machine-guard/internal/cache"
	"machine-guard/internal/config"
	"machine-guard/internal/consumer"
	"machine-guard/internal/database"
	"machine-guard/internal/guard"
	"machine-guard/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	mqttcommon "machine-guard/internal/mqtt"
)

// GuardService 设备监护服务
type GuardService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client
	registry   *guard.Registry
	consumer   *consumer.MQTTConsumer
	poller     *consumer.HTTPPoller
}

// NewGuardService 创建监护服务
func NewGuardService(cfg *config.Config, logger *zap.Logger) (*GuardService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 初始化Redis
	redisClient := cache.NewRedisClient(&cfg.Redis)
	if err := cache.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化MQTT
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// 创建Repository
	artifactRepo := repository.NewArtifactRepository(db, logger)
	readingRepo := repository.NewReadingRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)

	// 创建缓存与通知器
	statusCache := cache.NewStatusCache(redisClient, &cfg.Guard, logger)
	notifier := NewStatusNotifier(cfg, mqttClient, statusCache, alertRepo, logger)

	// 创建设备注册表
	registry := guard.NewRegistry(&cfg.Guard, artifactRepo, notifier, logger)

	// 创建Consumer
	mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, registry, readingRepo, logger)

	svc := &GuardService{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		mqttClient: mqttClient,
		registry:   registry,
		consumer:   mqttConsumer,
	}

	// 可选的HTTP轮询采集
	if cfg.Guard.Poller.Enabled {
		svc.poller = consumer.NewHTTPPoller(cfg, registry, readingRepo, logger)
	}

	return svc, nil
}

// Start 启动服务（阻塞直到上下文取消）
func (s *GuardService) Start(ctx context.Context) error {
	s.logger.Info("Starting guard service components")

	if s.poller != nil {
		go func() {
			if err := s.poller.Start(ctx); err != nil {
				s.logger.Error("HTTP poller error", zap.Error(err))
			}
		}()
	}

	// MQTT消费者阻塞到上下文取消
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MQTT consumer: %w", err)
	}

	s.logger.Info("Guard service started successfully")
	return nil
}

// Stop 停止服务
func (s *GuardService) Stop() {
	s.logger.Info("Stopping guard service")

	if s.consumer != nil {
		s.consumer.Stop()
	}

	// 先排空设备队列，再断开下游连接
	if s.registry != nil {
		s.registry.Stop()
	}

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if s.redis != nil {
		if err := cache.Close(s.redis); err != nil {
			s.logger.Error("Error closing redis", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Error closing database", zap.Error(err))
		}
	}

	s.logger.Info("Guard service stopped")
}
