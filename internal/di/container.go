// Package di provides dependency injection configuration for the markertrack server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/markertrack/internal/config"
	"github.com/listenupapp/markertrack/internal/di/providers"
	"github.com/listenupapp/markertrack/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Events and sessions
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideSessionManager)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services. Shutdown runs in reverse dependency order,
// so the HTTP server stops first and the event stream last.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)

	if _, err := do.Invoke[*providers.SessionManagerHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
