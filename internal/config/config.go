package config

import (
	"strings"
	"time"

	"signalhub-backend/pkg/constants"
	"signalhub-backend/pkg/env"
)

// Config holds the signaling service configuration loaded from the
// environment (or Docker secrets via the _FILE convention).
type Config struct {
	Env        string
	ListenAddr string

	JWTSecret string

	RedisAddr     string
	RedisPassword string

	AllowedOrigins []string
	MaxConnections int

	RingTimeout time.Duration
	RoomMaxIdle time.Duration
}

// Load reads the configuration from the environment
func Load() *Config {
	cfg := &Config{
		Env:            env.GetString("ENV", "development"),
		ListenAddr:     env.GetString("LISTEN_ADDR", ":8080"),
		JWTSecret:      env.GetStringFromFile("JWT_SECRET", ""),
		RedisAddr:      env.GetString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  env.GetStringFromFile("REDIS_PASSWORD", ""),
		MaxConnections: env.GetInt("WS_MAX_CONNECTIONS", 1000),
		RingTimeout:    env.GetDuration("CALL_RING_TIMEOUT", constants.CallRingTimeout),
		RoomMaxIdle:    env.GetDuration("ROOM_MAX_IDLE", constants.RoomMaxIdle),
	}

	if origins := env.GetString("WS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	return cfg
}
