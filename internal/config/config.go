package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/wavechat/messaging-gateway/pkg/config"
	"github.com/wavechat/messaging-gateway/pkg/database"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Auth      AuthConfig
	Store     StoreConfig
	Channels  ChannelConfig
	Presence  PresenceConfig
	Metrics   MetricsConfig
	Redis     RedisConfig
	Firehose  FirehoseConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type StoreConfig struct {
	// Driver selects the backend: postgres, mysql, sqlite, or memory.
	Driver   string          `mapstructure:"driver"`
	FilePath string          `mapstructure:"file_path"` // memory driver JSON mirror
	Database database.Config `mapstructure:"database"`
}

type ChannelConfig struct {
	BacklogLimit int `mapstructure:"backlog_limit"`
}

type PresenceConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

type MetricsConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Address           string        `mapstructure:"address"`
	Password          string        `mapstructure:"password"`
	DB                int           `mapstructure:"db"`
	RegistryPrefix    string        `mapstructure:"registry_prefix"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
	AdvertiseAddress  string        `mapstructure:"advertise_address"`
}

type FirehoseConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Brokers    string `mapstructure:"brokers"`
	Topic      string `mapstructure:"topic"`
	Partitions int    `mapstructure:"partitions"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.file_path", "./data/messages.json")
	v.SetDefault("store.database.driver", "sqlite")
	v.SetDefault("store.database.file_path", "./data/messages.db")
	v.SetDefault("store.database.sslmode", "disable")
	v.SetDefault("channels.backlog_limit", 50)
	v.SetDefault("presence.grace_period", "5s")
	v.SetDefault("metrics.interval", "5s")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.registry_prefix", "gateway:registry")
	v.SetDefault("redis.heartbeat_interval", "10s")
	v.SetDefault("redis.key_ttl", "30s")
	v.SetDefault("redis.advertise_address", "localhost:8090")
	v.SetDefault("firehose.enabled", false)
	v.SetDefault("firehose.brokers", "localhost:9092")
	v.SetDefault("firehose.topic", "gateway-messages")
	v.SetDefault("firehose.partitions", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.database.host", "DB_HOST")
	v.BindEnv("store.database.user", "DB_USER")
	v.BindEnv("store.database.password", "DB_PASSWORD")
	v.BindEnv("store.database.dbname", "DB_NAME")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("firehose.enabled", "FIREHOSE_ENABLED")
	v.BindEnv("firehose.brokers", "KAFKA_BROKERS")
	v.BindEnv("firehose.topic", "KAFKA_TOPIC")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Presence.GracePeriod = parseDuration(v, "presence.grace_period", 5*time.Second)
	cfg.Metrics.Interval = parseDuration(v, "metrics.interval", 5*time.Second)
	cfg.Redis.HeartbeatInterval = parseDuration(v, "redis.heartbeat_interval", 10*time.Second)
	cfg.Redis.KeyTTL = parseDuration(v, "redis.key_ttl", 30*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
