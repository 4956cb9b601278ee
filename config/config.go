package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         string
	Env          string
	RedisAddr    string
	StoreMode    string // "redis" or "memory"
	QueueMode    string // "channel" or "kafka"
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string
	WorkerCount  int
	QueueSize    int
	ScratchDir   string
	TaskTTL      time.Duration
	MaxBodyBytes int64
	Engines      EngineConfig
}

// EngineConfig is built once at startup and injected into the cascade
// constructor; there is no process-wide engine registry.
type EngineConfig struct {
	Neural   bool
	Enhanced bool
	Basic    bool
}

func Load() *Config {
	return &Config{
		Port:         getEnv("SERVICE_PORT", "8083"),
		Env:          getEnv("ENV", "development"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		StoreMode:    getEnv("STORE_MODE", "redis"),
		QueueMode:    getEnv("QUEUE_MODE", "channel"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "captcha_tasks"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "solver-group"),
		WorkerCount:  getEnvAsInt("WORKER_COUNT", 4),
		QueueSize:    getEnvAsInt("QUEUE_SIZE", 64),
		ScratchDir:   getEnv("SCRATCH_DIR", "/tmp/captcha"),
		TaskTTL:      getEnvAsDuration("TASK_TTL", 10*time.Minute),
		MaxBodyBytes: getEnvAsInt64("MAX_BODY_BYTES", 4*1024*1024),
		Engines: EngineConfig{
			Neural:   getEnvAsBool("ENGINE_NEURAL", true),
			Enhanced: getEnvAsBool("ENGINE_ENHANCED", true),
			Basic:    getEnvAsBool("ENGINE_BASIC", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
