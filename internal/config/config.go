package config

import (
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port            string
	DatabaseURL     string
	CountdownSecs   int
	ItemsPerRound   int
	HeartbeatSecs   int
	CatalogPath     string // optional YAML catalog; built-in items when empty
	AllowedOrigins  []string
	LogLevel        string
	SeedLeaderboard bool
}

func Load() Config {
	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CountdownSecs:   getEnvInt("COUNTDOWN_SECS", 5),
		ItemsPerRound:   getEnvInt("ITEMS_PER_ROUND", 3),
		HeartbeatSecs:   getEnvInt("HEARTBEAT_SECS", 5),
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		AllowedOrigins:  getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SeedLeaderboard: getEnvBool("SEED_LEADERBOARD", true),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
