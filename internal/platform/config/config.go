package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string
	RedisAddr    string

	WorkerPollInterval time.Duration
	OutboxBatchSize    int
	LinkingTimeout     time.Duration
	RenewalTimeout     time.Duration
	StatusCacheTTL     time.Duration

	EnableOutboxPublisher bool
	EnableInboxConsumer   bool
	EnableSagaTimeouts    bool
	EnableBrokerIngest    bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "beacon"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,
		RedisAddr:    redisAddr,

		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),
		LinkingTimeout:     envDuration("LINKING_TIMEOUT", 2*time.Minute),
		RenewalTimeout:     envDuration("RENEWAL_TIMEOUT", 2*time.Minute),
		StatusCacheTTL:     envDuration("STATUS_CACHE_TTL", 5*time.Minute),

		EnableOutboxPublisher: envBool("ENABLE_OUTBOX_PUBLISHER", true),
		EnableInboxConsumer:   envBool("ENABLE_INBOX_CONSUMER", true),
		EnableSagaTimeouts:    envBool("ENABLE_SAGA_TIMEOUTS", true),
		EnableBrokerIngest:    envBool("ENABLE_BROKER_INGEST", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
