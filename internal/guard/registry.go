package guard

import (
	"context"
	"sync"

	"machine-guard/internal/config"
	"machine-guard/internal/models"

	"go.uber.org/zap"
)

// inboxSize 每设备待处理读数的缓冲容量
const inboxSize = 64

// Registry 设备注册表
//
// 每个设备一个独立的工作协程，顺序排空自己的读数队列，
// 保证同一设备的读数严格按到达顺序处理；
// 训练耗时只阻塞本设备，不影响其它设备的读数处理
type Registry struct {
	cfg      *config.GuardConfig
	store    ArtifactStore
	notifier Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	workers map[string]*deviceWorker
	closed  bool
	wg      sync.WaitGroup
}

// deviceWorker 单设备的监控器与读数队列
type deviceWorker struct {
	monitor *DeviceMonitor
	inbox   chan *models.Reading
}

// NewRegistry 创建设备注册表
func NewRegistry(
	cfg *config.GuardConfig,
	store ArtifactStore,
	notifier Notifier,
	logger *zap.Logger,
) *Registry {
	return &Registry{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logger,
		workers:  map[string]*deviceWorker{},
	}
}

// Dispatch 将读数派发给对应设备的工作协程
// 首次见到的设备即时注册并从持久化状态恢复
func (reg *Registry) Dispatch(reading *models.Reading) {
	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return
	}
	w, ok := reg.workers[reading.DeviceID]
	if !ok {
		reg.logger.Info("New device detected", zap.String("device_id", reading.DeviceID))
		w = &deviceWorker{
			monitor: NewDeviceMonitor(reading.DeviceID, reg.cfg, reg.store, reg.notifier, reg.logger),
			inbox:   make(chan *models.Reading, inboxSize),
		}
		reg.workers[reading.DeviceID] = w
		reg.wg.Add(1)
		go reg.run(w)
	}
	reg.mu.Unlock()

	select {
	case w.inbox <- reading:
	default:
		// 队列满说明该设备在训练中且上游速率过高，丢弃并告警
		reg.logger.Warn("Device inbox full, dropping reading",
			zap.String("device_id", reading.DeviceID),
		)
	}
}

// run 设备工作协程：恢复状态后顺序排空队列
func (reg *Registry) run(w *deviceWorker) {
	defer reg.wg.Done()

	ctx := context.Background()
	w.monitor.Restore(ctx)

	for reading := range w.inbox {
		w.monitor.ProcessReading(ctx, reading)
	}
}

// DeviceCount 当前已注册设备数
func (reg *Registry) DeviceCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.workers)
}

// Stop 关闭所有设备队列并等待排空
func (reg *Registry) Stop() {
	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return
	}
	reg.closed = true
	for _, w := range reg.workers {
		close(w.inbox)
	}
	reg.mu.Unlock()

	reg.wg.Wait()
	reg.logger.Info("Device registry stopped")
}
