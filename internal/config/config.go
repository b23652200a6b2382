package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Ordered candidate base URLs of the marketplace backend. The first
	// entry is the primary; the rest are fallbacks tried in order.
	APIBaseURLs []string

	StoragePath string

	KafkaBrokers []string

	LogLevel string

	// Offline dev login affordance. Disabled unless OFFLINE_LOGIN=true.
	OfflineLogin    bool
	OfflineEmail    string
	OfflinePassword string

	JWTSecret []byte

	DevServerAddr string
	DatabasePath  string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		APIBaseURLs:     CSV(EnvDefault("API_BASE_URLS", "http://localhost:8080")),
		StoragePath:     EnvDefault("STORAGE_PATH", "storefront.db"),
		KafkaBrokers:    CSV(os.Getenv("KAFKA_BROKERS")),
		LogLevel:        EnvDefault("LOG_LEVEL", "info"),
		OfflineLogin:    EnvBoolDefault("OFFLINE_LOGIN", false),
		OfflineEmail:    EnvDefault("OFFLINE_EMAIL", "admin@partshub.dev"),
		OfflinePassword: os.Getenv("OFFLINE_PASSWORD"),
		JWTSecret:       []byte(os.Getenv("JWT_HS256_SECRET")),
		DevServerAddr:   EnvDefault("DEVSERVER_ADDR", ":8080"),
		DatabasePath:    EnvDefault("DATABASE_PATH", "devserver.db"),
	}

	return cfg
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.TrimRight(p, "/"))
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
