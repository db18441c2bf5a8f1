// Package di provides dependency injection configuration for the cache.
package di

import (
	"github.com/samber/do/v2"

	"github.com/meshapp/mesh-cache/internal/config"
	"github.com/meshapp/mesh-cache/internal/controller"
	"github.com/meshapp/mesh-cache/internal/di/providers"
	"github.com/meshapp/mesh-cache/internal/logger"
	"github.com/meshapp/mesh-cache/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)

	// Controllers
	do.Provide(injector, providers.ProvideUserController)
	do.Provide(injector, providers.ProvidePostController)

	return injector
}

// Bootstrap initializes all services eagerly so configuration and storage
// problems surface at startup instead of on first use.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*controller.UserController](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*controller.PostController](injector); err != nil {
		return err
	}
	return nil
}
