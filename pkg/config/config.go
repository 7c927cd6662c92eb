package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the api, gateway and messaging
// services.
type Config struct {
	Env string

	APIPort     string
	GatewayPort string

	ScyllaHosts []string
	Keyspace    string

	KafkaBrokers []string
	KafkaTopic   string

	RedisAddr string

	JWTSecret     string
	CloudinaryURL string
}

// Load reads configuration from environment variables, falling back to a
// .env file in development.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:           getEnv("ENV", "development"),
		APIPort:       getEnv("API_PORT", "8081"),
		GatewayPort:   getEnv("GATEWAY_PORT", "8080"),
		ScyllaHosts:   splitList(getEnv("SCYLLA_HOSTS", "localhost:9042")),
		Keyspace:      getEnv("SCYLLA_KEYSPACE", "ngobrol"),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:19092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "room-events"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:     getEnv("JWT_SECRET", "dev_secret_change_me"),
		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
	}
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
