package config

import "github.com/spf13/viper"

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 15)
	viper.SetDefault("server.writeTimeout", 15)

	// Redis
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.poolSize", 100)
	viper.SetDefault("redis.poolTimeout", 5)
	viper.SetDefault("redis.messageAddress", "")
	viper.SetDefault("redis.messageDB", 1)
	viper.SetDefault("redis.sessionTTL", 3600)

	// WebSocket
	viper.SetDefault("websocket.messageSizeLimit", 2048)
	viper.SetDefault("websocket.writeTimeout", 10)
	viper.SetDefault("websocket.sendRetries", 2)
	viper.SetDefault("websocket.inboxBuffer", 16)
	viper.SetDefault("websocket.memorySessionTTL", 300)

	// Heartbeat
	viper.SetDefault("heartbeat.interval", 30)

	// Shutdown
	viper.SetDefault("shutdown.drainWindowMs", 2000)
	viper.SetDefault("shutdown.tickerStopTimeoutMs", 1000)
	viper.SetDefault("shutdown.ceilingMs", 4000)
	viper.SetDefault("shutdown.byeFlushDelayMs", 100)

	// Broker
	viper.SetDefault("broker.type", "none")
	viper.SetDefault("broker.channel", "relay-broadcasts")
	viper.SetDefault("broker.kafka.groupID", "relay")

	// Worker pool
	viper.SetDefault("worker.poolSize", 32)
}
