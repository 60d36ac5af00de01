package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/markertrack/internal/config"
	"github.com/listenupapp/markertrack/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting markertrack server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"source_dir", cfg.Sources.BaseDir,
		"max_sessions", cfg.Timeline.MaxSessions,
	)

	return log, nil
}
