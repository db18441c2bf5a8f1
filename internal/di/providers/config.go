// Package providers contains dependency injection providers for the cache.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/meshapp/mesh-cache/internal/config"
	"github.com/meshapp/mesh-cache/internal/logger"
	"github.com/meshapp/mesh-cache/internal/validation"
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
		Environment: cfg.App.Environment,
	})

	log.Info("Starting mesh cache",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"store_path", cfg.Store.Path,
		"sync_ttl", cfg.Sync.TTL,
	)

	return log, nil
}

// ProvideValidator provides the payload validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
