package config

import (
	"os"
	"strconv"
	"time"
)

type PointsConfig struct {
	MaxBalance     int64         // inclusive balance ceiling per account
	VoucherTimeout time.Duration // top-up voucher QR lifetime
	EventQueueKey  string        // redis list for post-commit point events
}

func LoadPointsConfig() *PointsConfig {
	return &PointsConfig{
		MaxBalance:     getEnvAsInt64("POINTS_MAX_BALANCE", 1_000_000),
		VoucherTimeout: getEnvAsDuration("POINTS_VOUCHER_TIMEOUT", 5*time.Minute),
		EventQueueKey:  getEnv("POINTS_EVENT_QUEUE", "point_events"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
