package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func (c *AppConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis address must be specified when redis is enabled")
	}

	if c.Redis.SessionTTL < 1 {
		return errors.New("redis session TTL must be positive")
	}

	if c.WebSocket.MemorySessionTTL < 1 {
		return errors.New("in-memory session TTL must be positive")
	}

	if c.WebSocket.WriteTimeout < 1 {
		return errors.New("websocket write timeout must be at least 1 second")
	}

	if c.Heartbeat.Interval < 1 {
		return errors.New("heartbeat interval must be at least 1 second")
	}

	if c.Shutdown.DrainWindowMs < 0 || c.Shutdown.TickerStopTimeoutMs < 0 {
		return errors.New("shutdown timeouts must not be negative")
	}

	if c.Shutdown.DrainWindowMs+c.Shutdown.TickerStopTimeoutMs > c.Shutdown.CeilingMs {
		return errors.New("shutdown drain window plus ticker stop timeout must fit within the ceiling")
	}

	switch strings.ToLower(c.Broker.Type) {
	case "none":
	case "redis":
		if !c.Redis.Enabled {
			return errors.New("redis broker requires redis to be enabled")
		}
		if c.Broker.Channel == "" {
			return errors.New("broker channel must be configured for redis broker")
		}
	case "kafka":
		if len(c.Broker.Kafka.Brokers) == 0 {
			return errors.New("kafka brokers must be specified for kafka broker")
		}
		if c.Broker.Kafka.GroupID == "" {
			return errors.New("kafka groupID must be specified for kafka broker")
		}
	default:
		return fmt.Errorf("invalid broker type: %s. Must be 'none', 'redis' or 'kafka'", c.Broker.Type)
	}

	if c.Worker.PoolSize < 1 {
		return errors.New("worker pool size must be positive")
	}

	return nil
}

func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "RELAY_PORT")

	// Redis
	viper.BindEnv("redis.enabled", "RELAY_REDIS_ENABLED")
	viper.BindEnv("redis.address", "RELAY_REDIS_ADDRESS")
	viper.BindEnv("redis.password", "RELAY_REDIS_PASSWORD")
	viper.BindEnv("redis.messageAddress", "RELAY_MESSAGE_REDIS_ADDRESS")
	viper.BindEnv("redis.sessionTTL", "RELAY_REDIS_SESSION_TTL")

	// WebSocket
	viper.BindEnv("websocket.writeTimeout", "RELAY_WS_WRITE_TIMEOUT")
	viper.BindEnv("websocket.memorySessionTTL", "RELAY_MEMORY_SESSION_TTL")

	// Heartbeat
	viper.BindEnv("heartbeat.interval", "RELAY_HEARTBEAT_INTERVAL")

	// Broker
	viper.BindEnv("broker.type", "RELAY_BROKER_TYPE")
	viper.BindEnv("broker.channel", "RELAY_BROKER_CHANNEL")
	viper.BindEnv("broker.kafka.brokers", "RELAY_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.groupID", "RELAY_KAFKA_GROUPID")
}
