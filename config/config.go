package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Server    ServerConfig
	Redis     RedisConfig
	WebSocket WebSocketConfig
	Heartbeat HeartbeatConfig
	Shutdown  ShutdownConfig
	Broker    BrokerConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  int // Seconds
	WriteTimeout int // Seconds
}

// RedisConfig covers the external session store. MessageAddress optionally
// points message history at a second Redis instance; when empty the session
// instance holds history as well.
type RedisConfig struct {
	Enabled        bool
	Address        string
	Password       string
	DB             int
	PoolSize       int
	PoolTimeout    int // Seconds
	MessageAddress string
	MessageDB      int
	SessionTTL     int // Seconds
}

type WebSocketConfig struct {
	MessageSizeLimit int
	WriteTimeout     int // Seconds
	SendRetries      int
	InboxBuffer      int
	MemorySessionTTL int // Seconds
}

type HeartbeatConfig struct {
	Interval int // Seconds
}

type ShutdownConfig struct {
	DrainWindowMs       int
	TickerStopTimeoutMs int
	CeilingMs           int
	ByeFlushDelayMs     int
}

type BrokerConfig struct {
	Type    string // "none", "redis" or "kafka"
	Channel string
	Kafka   KafkaConfig
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type WorkerConfig struct {
	PoolSize int
}

var (
	instance *AppConfig
	once     sync.Once
)

func Initialize(env string) error {
	var initErr error
	once.Do(func() {
		viper.SetConfigName(fmt.Sprintf("config.%s", env))
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")

		viper.AutomaticEnv()
		viper.SetEnvPrefix("RELAY")

		setDefaults()
		bindEnvVars()

		if err := viper.ReadInConfig(); err != nil {
			// A missing config file is fine; defaults and env vars apply.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				initErr = fmt.Errorf("config file error: %w", err)
				return
			}
		}

		if err := viper.Unmarshal(&instance); err != nil {
			initErr = fmt.Errorf("config unmarshal error: %w", err)
			return
		}

		if err := instance.Validate(); err != nil {
			initErr = fmt.Errorf("config validation failed: %w", err)
			return
		}
	})
	return initErr
}

func Get() *AppConfig {
	return instance
}
