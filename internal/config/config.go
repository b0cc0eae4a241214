package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	DatabaseURL    string
	LogLevel       string
	LogDev         bool
	AllowedOrigins []string
}

// Load reads configuration from the environment, after loading a .env
// file when one is present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getenv("ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogDev:         os.Getenv("LOG_DEV") == "true",
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
	}
}

// splitList parses a comma-separated env value; empty yields nil, which
// keeps the websocket accept on its same-origin default.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
