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
}

// Config 配置器服务配置
type Config struct {
	HTTP struct {
		Addr string
	}

	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 渲染器通道主题
	Renderer struct {
		CommandTopic string // 出站：配置器 → 渲染器
		EventTopic   string // 入站：渲染器 → 配置器
	}

	// 账号服务（保存前校验会话令牌）
	Accounts struct {
		BaseURL        string
		TimeoutSeconds int
	}

	// 会话配置
	Session struct {
		TTLSeconds            int    // 会话空闲过期
		SnapshotPrefix        string // 会话快照缓存键前缀
		PendingSavePrefix     string // 待认证保存的暂存键前缀
		PendingSaveTTLSeconds int
		LocalStorePrefix      string // 本地（未认证）已存配置键前缀
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8086")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "limi")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "limi-configurator")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")

	cfg.Renderer.CommandTopic = getEnv("RENDERER_COMMAND_TOPIC", "limi/renderer/commands")
	cfg.Renderer.EventTopic = getEnv("RENDERER_EVENT_TOPIC", "limi/renderer/events")

	cfg.Accounts.BaseURL = getEnv("ACCOUNTS_BASE_URL", "http://localhost:8081")
	cfg.Accounts.TimeoutSeconds = getEnvInt("ACCOUNTS_TIMEOUT", 10)

	cfg.Session.TTLSeconds = getEnvInt("SESSION_TTL", 3600)
	cfg.Session.SnapshotPrefix = getEnv("SESSION_SNAPSHOT_PREFIX", "configurator:session:")
	cfg.Session.PendingSavePrefix = getEnv("PENDING_SAVE_PREFIX", "configurator:pending-save:")
	cfg.Session.PendingSaveTTLSeconds = getEnvInt("PENDING_SAVE_TTL", 1800)
	cfg.Session.LocalStorePrefix = getEnv("LOCAL_STORE_PREFIX", "configurator:local:")

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
