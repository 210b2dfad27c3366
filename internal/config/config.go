package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// GuardConfig 设备监护配置
type GuardConfig struct {
	// 校准配置
	Calibration struct {
		TargetSamples int // 校准目标样本数，默认 100
		MaxSeconds    int // 校准时间上限（秒），默认 300
	}

	// 离群点模型配置
	Model struct {
		Trees         int     // 隔离树数量，默认 200
		SampleSize    int     // 每棵树的子采样大小，默认 256
		Contamination float64 // 训练数据中预期的异常比例，默认 0.05
	}

	// 报警配置
	Alert struct {
		SignificantDeviation float64 // 显著偏差阈值（标准化单位），默认 2.0
	}

	// MQTT 主题配置
	Topics struct {
		Sensor       string // 传感器数据订阅主题，如 "sensors/+/data"
		StatusPrefix string // 状态发布主题前缀，如 "machine-guard"
	}

	// Redis 缓存配置
	Cache struct {
		StatusKeyPrefix string // 实时状态缓存键前缀，如 "machine-guard:device:"
		StatusSuffix    string // 实时状态缓存键后缀，如 ":status"
		StatusTTL       int    // 实时状态 TTL（秒），默认 30秒
		AlertStream     string // 报警事件流，如 "machine-guard:alerts"
	}

	// HTTP 轮询配置（可选的采集方式，替代 MQTT 推送）
	Poller struct {
		Enabled      bool   // 是否启用轮询
		URL          string // 遥测数据树的 REST 端点
		IntervalSecs int    // 轮询间隔（秒），默认 2
	}
}

// Config 监护服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Guard    GuardConfig

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "machineguard")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "machine-guard")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	// 监护配置
	cfg.Guard.Calibration.TargetSamples = getEnvInt("GUARD_CALIBRATION_SAMPLES", 100)
	cfg.Guard.Calibration.MaxSeconds = getEnvInt("GUARD_CALIBRATION_MAX_SECONDS", 300)

	cfg.Guard.Model.Trees = getEnvInt("GUARD_MODEL_TREES", 200)
	cfg.Guard.Model.SampleSize = getEnvInt("GUARD_MODEL_SAMPLE_SIZE", 256)
	cfg.Guard.Model.Contamination = getEnvFloat("GUARD_MODEL_CONTAMINATION", 0.05)

	cfg.Guard.Alert.SignificantDeviation = getEnvFloat("GUARD_ALERT_SIGNIFICANT_DEVIATION", 2.0)

	cfg.Guard.Topics.Sensor = getEnv("GUARD_SENSOR_TOPIC", "sensors/+/data")
	cfg.Guard.Topics.StatusPrefix = getEnv("GUARD_STATUS_TOPIC_PREFIX", "machine-guard")

	cfg.Guard.Cache.StatusKeyPrefix = getEnv("CACHE_STATUS_PREFIX", "machine-guard:device:")
	cfg.Guard.Cache.StatusSuffix = ":status"
	cfg.Guard.Cache.StatusTTL = getEnvInt("CACHE_STATUS_TTL", 30)
	cfg.Guard.Cache.AlertStream = getEnv("CACHE_ALERT_STREAM", "machine-guard:alerts")

	cfg.Guard.Poller.Enabled = getEnv("POLLER_ENABLED", "false") == "true"
	cfg.Guard.Poller.URL = getEnv("POLLER_URL", "")
	cfg.Guard.Poller.IntervalSecs = getEnvInt("POLLER_INTERVAL_SECONDS", 2)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
