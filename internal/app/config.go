package app

import (
	"github.com/yungbote/scribe-backend/internal/platform/envutil"
)

type Config struct {
	Port              string
	LogMode           string
	Environment       string
	Version           string
	ModelsConfigPath  string
	TelemetryCapacity int
}

func LoadConfig() Config {
	return Config{
		Port:              envutil.String("PORT", "8080"),
		LogMode:           envutil.String("LOG_MODE", "development"),
		Environment:       envutil.String("ENVIRONMENT", "development"),
		Version:           envutil.String("SERVICE_VERSION", "dev"),
		ModelsConfigPath:  envutil.String("MODELS_CONFIG_PATH", "config/models.yml"),
		TelemetryCapacity: envutil.Int("TELEMETRY_CAPACITY", 500),
	}
}
