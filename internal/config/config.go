package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	BroadcastHz int
}

// Load reads .env if present and resolves process configuration with
// defaults matching the reference deployment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file found, using environment")
	}

	return Config{
		Port:        intEnv("PORT", 3000),
		BroadcastHz: intEnv("BROADCAST_HZ", 30),
	}
}

func intEnv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %d", key, raw, def)
		return def
	}
	return v
}
