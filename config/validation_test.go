package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Port: 8080, ReadTimeout: 15, WriteTimeout: 15},
		Redis: RedisConfig{
			Enabled:    true,
			Address:    "localhost:6379",
			PoolSize:   100,
			SessionTTL: 3600,
		},
		WebSocket: WebSocketConfig{
			MessageSizeLimit: 2048,
			WriteTimeout:     10,
			SendRetries:      2,
			InboxBuffer:      16,
			MemorySessionTTL: 300,
		},
		Heartbeat: HeartbeatConfig{Interval: 30},
		Shutdown: ShutdownConfig{
			DrainWindowMs:       2000,
			TickerStopTimeoutMs: 1000,
			CeilingMs:           4000,
			ByeFlushDelayMs:     100,
		},
		Broker: BrokerConfig{Type: "none", Channel: "relay-broadcasts"},
		Worker: WorkerConfig{PoolSize: 32},
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_RejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{
			name:    "port too low",
			mutate:  func(c *AppConfig) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port too high",
			mutate:  func(c *AppConfig) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "redis enabled without address",
			mutate:  func(c *AppConfig) { c.Redis.Address = "" },
			wantErr: "redis address",
		},
		{
			name:    "non-positive redis session TTL",
			mutate:  func(c *AppConfig) { c.Redis.SessionTTL = 0 },
			wantErr: "redis session TTL",
		},
		{
			name:    "non-positive memory session TTL",
			mutate:  func(c *AppConfig) { c.WebSocket.MemorySessionTTL = 0 },
			wantErr: "in-memory session TTL",
		},
		{
			name:    "zero write timeout",
			mutate:  func(c *AppConfig) { c.WebSocket.WriteTimeout = 0 },
			wantErr: "write timeout",
		},
		{
			name:    "zero heartbeat interval",
			mutate:  func(c *AppConfig) { c.Heartbeat.Interval = 0 },
			wantErr: "heartbeat interval",
		},
		{
			name:    "negative drain window",
			mutate:  func(c *AppConfig) { c.Shutdown.DrainWindowMs = -1 },
			wantErr: "must not be negative",
		},
		{
			name: "drain plus ticker stop exceeds ceiling",
			mutate: func(c *AppConfig) {
				c.Shutdown.DrainWindowMs = 3000
				c.Shutdown.TickerStopTimeoutMs = 2000
				c.Shutdown.CeilingMs = 4000
			},
			wantErr: "within the ceiling",
		},
		{
			name:    "unknown broker type",
			mutate:  func(c *AppConfig) { c.Broker.Type = "rabbitmq" },
			wantErr: "invalid broker type",
		},
		{
			name: "redis broker without redis enabled",
			mutate: func(c *AppConfig) {
				c.Broker.Type = "redis"
				c.Redis.Enabled = false
			},
			wantErr: "requires redis",
		},
		{
			name: "redis broker without channel",
			mutate: func(c *AppConfig) {
				c.Broker.Type = "redis"
				c.Broker.Channel = ""
			},
			wantErr: "broker channel",
		},
		{
			name:    "kafka broker without brokers",
			mutate:  func(c *AppConfig) { c.Broker.Type = "kafka" },
			wantErr: "kafka brokers",
		},
		{
			name: "kafka broker without group id",
			mutate: func(c *AppConfig) {
				c.Broker.Type = "kafka"
				c.Broker.Kafka.Brokers = []string{"localhost:9092"}
				c.Broker.Kafka.GroupID = ""
			},
			wantErr: "groupID",
		},
		{
			name:    "zero worker pool",
			mutate:  func(c *AppConfig) { c.Worker.PoolSize = 0 },
			wantErr: "worker pool size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CaseInsensitiveBrokerType(t *testing.T) {
	cfg := validConfig()
	cfg.Broker.Type = "NONE"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RedisDisabledSkipsAddressCheck(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Enabled = false
	cfg.Redis.Address = ""
	assert.NoError(t, cfg.Validate())
}
