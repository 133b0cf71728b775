package app

import (
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/utils"
)

type Config struct {
	Port         string
	DataDir      string
	PackagesPath string
	ServiceName  string
	Environment  string
	Version      string
	MetricsAddr  string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:         utils.GetEnv("PORT", "8000", log),
		DataDir:      utils.GetEnv("DATA_DIR", "./data", log),
		PackagesPath: utils.GetEnv("PACKAGES_CONFIG", "./config/packages.yaml", log),
		ServiceName:  utils.GetEnv("SERVICE_NAME", "normscout", log),
		Environment:  utils.GetEnv("ENVIRONMENT", "development", log),
		Version:      utils.GetEnv("SERVICE_VERSION", "dev", log),
		MetricsAddr:  utils.GetEnv("METRICS_ADDR", "", log),
	}
}
