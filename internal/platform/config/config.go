package config

import "os"

// Server captures process-level configuration. Backends are selected by which
// connection settings are present: Postgres wins over Redis, and with neither
// configured the service runs on in-memory stores.
type Server struct {
	Addr            string
	PostgresDSN     string
	RedisURL        string
	KafkaBrokers    string
	KafkaAuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("TAGPROOF_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "tagproof.audits"
	}

	return Server{
		Addr:            addr,
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		KafkaAuditTopic: topic,
	}
}
