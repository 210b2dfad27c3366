package guard

import (
	"context"
	"time"

	"machine-guard/internal/anomaly"
	"machine-guard/internal/config"
	"machine-guard/internal/health"
	"machine-guard/internal/models"

	"go.uber.org/zap"
)

// ArtifactStore 生命周期状态与校准产物的持久化存储
type ArtifactStore interface {
	SaveState(ctx context.Context, deviceID string, state models.DeviceState) error
	LoadState(ctx context.Context, deviceID string) (models.DeviceState, error)
	SaveArtifacts(ctx context.Context, deviceID string, artifact *models.CalibrationArtifact) error
	LoadArtifacts(ctx context.Context, deviceID string) (*models.CalibrationArtifact, error)
}

// Notifier 对外通知出口
type Notifier interface {
	// Notify 发布报警通知（仅在门控放行时调用）
	Notify(ctx context.Context, payload *models.StatusPayload) error
	// UpdateStatus 刷新实时状态（每次监测读数都调用）
	UpdateStatus(ctx context.Context, payload *models.StatusPayload) error
}

// DeviceMonitor 单设备生命周期控制器
//
// 状态机：NEW →(首个读数)→ CALIBRATING →(训练成功)→ MONITORING；
// 训练失败或产物加载失败回到 NEW 强制重新校准。
// 所有可变状态归本设备独占，调用方保证同一设备的读数串行处理
type DeviceMonitor struct {
	deviceID string
	cfg      *config.GuardConfig
	store    ArtifactStore
	notifier Notifier
	logger   *zap.Logger

	state            models.DeviceState
	buffer           []*models.Reading
	calibrationStart time.Time
	lastTimestamp    time.Time

	scorer      *anomaly.Scorer
	baseline    *health.FeatureBaseline
	calibration health.ScoreCalibration
	gate        *AlertGate

	now func() time.Time
}

// NewDeviceMonitor 创建设备监控器（初始状态 NEW，持久化状态由 Restore 恢复）
func NewDeviceMonitor(
	deviceID string,
	cfg *config.GuardConfig,
	store ArtifactStore,
	notifier Notifier,
	logger *zap.Logger,
) *DeviceMonitor {
	return &DeviceMonitor{
		deviceID: deviceID,
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logger.With(zap.String("device_id", deviceID)),
		state:    models.StateNew,
		gate:     NewAlertGate(),
		now:      time.Now,
	}
}

// State 当前生命周期状态
func (m *DeviceMonitor) State() models.DeviceState {
	return m.state
}

// Restore 从持久化存储恢复生命周期状态
//
// MONITORING 状态需要成功加载校准产物，加载失败回退 NEW；
// CALIBRATING 状态的采样缓冲不持久化，重启后直接重新校准
func (m *DeviceMonitor) Restore(ctx context.Context) {
	state, err := m.store.LoadState(ctx, m.deviceID)
	if err != nil {
		m.logger.Warn("Failed to load persisted state, starting fresh", zap.Error(err))
		state = models.StateNew
	}

	switch state {
	case models.StateMonitoring:
		if err := m.loadArtifacts(ctx); err != nil {
			m.logger.Warn("Artifact load failed, forcing recalibration", zap.Error(err))
			m.setState(ctx, models.StateNew)
			return
		}
		m.state = models.StateMonitoring
		m.logger.Info("Resumed monitoring from persisted artifacts")
	case models.StateCalibrating:
		// 校准缓冲随进程丢失，重新开始
		m.logger.Info("Calibration was interrupted, restarting")
		m.setState(ctx, models.StateNew)
	default:
		m.state = models.StateNew
	}
}

// ProcessReading 处理一条读数（同一时间戳的重复投递被静默丢弃）
func (m *DeviceMonitor) ProcessReading(ctx context.Context, reading *models.Reading) {
	if !m.lastTimestamp.IsZero() && reading.Timestamp.Equal(m.lastTimestamp) {
		m.logger.Debug("Duplicate timestamp, skipping reading",
			zap.Time("timestamp", reading.Timestamp),
		)
		return
	}
	m.lastTimestamp = reading.Timestamp

	switch m.state {
	case models.StateNew:
		m.startCalibration(ctx, reading)
	case models.StateCalibrating:
		m.handleCalibration(ctx, reading)
	case models.StateMonitoring:
		m.handleMonitoring(ctx, reading)
	}
}

// startCalibration 重置采样缓冲并进入校准状态
func (m *DeviceMonitor) startCalibration(ctx context.Context, reading *models.Reading) {
	m.logger.Info("Starting calibration",
		zap.Int("target_samples", m.cfg.Calibration.TargetSamples),
	)

	m.buffer = m.buffer[:0]
	m.buffer = append(m.buffer, reading)
	m.calibrationStart = m.now()
	m.setState(ctx, models.StateCalibrating)
}

// handleCalibration 累积校准样本并评估双重停止条件
func (m *DeviceMonitor) handleCalibration(ctx context.Context, reading *models.Reading) {
	m.buffer = append(m.buffer, reading)

	count := len(m.buffer)
	elapsed := m.now().Sub(m.calibrationStart)
	maxDuration := time.Duration(m.cfg.Calibration.MaxSeconds) * time.Second

	if count >= m.cfg.Calibration.TargetSamples || elapsed > maxDuration {
		m.logger.Info("Calibration complete, training",
			zap.Int("samples", count),
			zap.Duration("elapsed", elapsed),
		)
		m.train(ctx)
	} else if count%10 == 0 {
		m.logger.Debug("Calibrating",
			zap.Int("samples", count),
			zap.Int("target", m.cfg.Calibration.TargetSamples),
		)
	}
}

// train 在完整采样缓冲上训练并持久化产物
// 任何失败（数值或 I/O）回退 NEW 并丢弃缓冲，不会用陈旧数据静默重试
func (m *DeviceMonitor) train(ctx context.Context) {
	matrix := make([][]float64, len(m.buffer))
	for i, r := range m.buffer {
		matrix[i] = r.Vector()
	}

	scorer, err := anomaly.FitScorer(matrix, anomaly.Options{
		Trees:         m.cfg.Model.Trees,
		SampleSize:    m.cfg.Model.SampleSize,
		Contamination: m.cfg.Model.Contamination,
		Seed:          42,
	})
	if err != nil {
		m.logger.Warn("Training failed, resetting device", zap.Error(err))
		m.reset(ctx)
		return
	}

	scores := scorer.TrainScores()
	calibration := health.ScoreCalibration{
		MinAnom: anomaly.Percentile(scores, 1),
		MaxNice: anomaly.Percentile(scores, 99),
	}
	if calibration.Degenerate() {
		m.logger.Warn("Degenerate calibration anchors, health mapping will clamp",
			zap.Float64("min_anom", calibration.MinAnom),
			zap.Float64("max_nice", calibration.MaxNice),
		)
	}

	baseline := health.ComputeBaseline(models.FeatureNames, matrix)

	scalerBlob, modelBlob, err := scorer.MarshalArtifacts()
	if err != nil {
		m.logger.Warn("Failed to serialize artifacts, resetting device", zap.Error(err))
		m.reset(ctx)
		return
	}

	artifact := &models.CalibrationArtifact{
		MinAnom:      calibration.MinAnom,
		MaxNice:      calibration.MaxNice,
		BaselineMean: baseline.Mean,
		BaselineStd:  baseline.Std,
		Scaler:       scalerBlob,
		Model:        modelBlob,
	}
	if err := m.store.SaveArtifacts(ctx, m.deviceID, artifact); err != nil {
		m.logger.Warn("Failed to persist artifacts, resetting device", zap.Error(err))
		m.reset(ctx)
		return
	}

	// 持久化成功后才发布内存引用
	m.scorer = scorer
	m.baseline = baseline
	m.calibration = calibration
	m.gate = NewAlertGate()
	m.buffer = nil
	m.setState(ctx, models.StateMonitoring)

	m.logger.Info("Training successful, monitoring started",
		zap.Float64("min_anom", calibration.MinAnom),
		zap.Float64("max_nice", calibration.MaxNice),
	)
}

// handleMonitoring 执行打分管线并转发报警门控结果
func (m *DeviceMonitor) handleMonitoring(ctx context.Context, reading *models.Reading) {
	if m.scorer == nil {
		if err := m.loadArtifacts(ctx); err != nil {
			m.logger.Warn("Artifacts unavailable, forcing recalibration", zap.Error(err))
			m.startCalibration(ctx, reading)
			return
		}
	}

	raw := m.scorer.DecisionScore(reading.Vector())
	healthScore := health.MapHealth(raw, m.calibration)
	risk := health.ClassifyRisk(healthScore)
	contributions := m.baseline.RankContributions(reading)

	payload := BuildStatus(
		m.deviceID,
		healthScore,
		risk,
		contributions,
		reading,
		m.cfg.Alert.SignificantDeviation,
		reading.Timestamp,
	)

	// 实时状态每次都刷新，失败不影响设备状态
	if err := m.notifier.UpdateStatus(ctx, payload); err != nil {
		m.logger.Warn("Failed to update realtime status", zap.Error(err))
	}

	if m.gate.ShouldNotify(risk, healthScore) {
		if err := m.notifier.Notify(ctx, payload); err != nil {
			m.logger.Error("Failed to publish alert", zap.Error(err))
		} else {
			m.logger.Info("Alert published",
				zap.String("risk", string(risk)),
				zap.Float64("health", payload.Health),
				zap.String("primary_issue", payload.PrimaryIssue),
			)
		}
	}
}

// loadArtifacts 从存储加载并校验模型/基线/锚点
func (m *DeviceMonitor) loadArtifacts(ctx context.Context) error {
	artifact, err := m.store.LoadArtifacts(ctx, m.deviceID)
	if err != nil {
		return err
	}

	scorer, err := anomaly.LoadScorer(artifact.Scaler, artifact.Model)
	if err != nil {
		return err
	}

	m.scorer = scorer
	m.baseline = &health.FeatureBaseline{
		Features: models.FeatureNames,
		Mean:     artifact.BaselineMean,
		Std:      artifact.BaselineStd,
	}
	m.calibration = health.ScoreCalibration{
		MinAnom: artifact.MinAnom,
		MaxNice: artifact.MaxNice,
	}
	m.gate = NewAlertGate()
	return nil
}

// reset 丢弃部分校准缓冲并回退 NEW
func (m *DeviceMonitor) reset(ctx context.Context) {
	m.buffer = nil
	m.setState(ctx, models.StateNew)
}

// setState 更新并持久化生命周期状态
// 持久化失败只记录日志：内存状态在本进程内仍然有效
func (m *DeviceMonitor) setState(ctx context.Context, state models.DeviceState) {
	m.state = state
	if err := m.store.SaveState(ctx, m.deviceID, state); err != nil {
		m.logger.Error("Failed to persist device state",
			zap.String("state", string(state)),
			zap.Error(err),
		)
	}
	m.logger.Info("Device state changed", zap.String("state", string(state)))
}
