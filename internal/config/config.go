// Package config loads engine configuration from the environment (and an
// optional .env file), following this repo's existing getEnv/getEnvInt
// convention.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every knob the engine server and its media cache need. S3
// fields are optional: when Endpoint is empty the S3 media staging path in
// the media cache is disabled and s3:// media paths fail to open.
type Config struct {
	Port          int
	LogLevel      string
	LogPath       string
	MediaStageDir string

	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Load reads configuration from the environment, loading an optional .env
// file first (godotenv never overrides variables already set).
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found or error loading .env, relying on existing environment variables and defaults")
	}

	return &Config{
		Port:          getEnvInt("ENGINE_PORT", 50051),
		LogLevel:      getEnv("ENGINE_LOG_LEVEL", "info"),
		LogPath:       getEnv("ENGINE_LOG_PATH", ""),
		MediaStageDir: getEnv("ENGINE_MEDIA_STAGE_DIR", os.TempDir()),

		S3Endpoint:  getEnv("ENGINE_S3_ENDPOINT", ""),
		S3Bucket:    getEnv("ENGINE_S3_BUCKET", ""),
		S3AccessKey: getEnv("ENGINE_S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("ENGINE_S3_SECRET_KEY", ""),
		S3UseSSL:    getEnvBool("ENGINE_S3_USE_SSL", true),
	}
}
