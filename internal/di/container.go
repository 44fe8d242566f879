// Package di provides dependency injection configuration for the site
// provisioning server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/eumtools/siteprov-server/internal/auth"
	"github.com/eumtools/siteprov-server/internal/config"
	"github.com/eumtools/siteprov-server/internal/di/providers"
	"github.com/eumtools/siteprov-server/internal/listcodec"
	"github.com/eumtools/siteprov-server/internal/logger"
	"github.com/eumtools/siteprov-server/internal/service"
	"github.com/eumtools/siteprov-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Store layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideCodec)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideSiteService)
	do.Provide(injector, providers.ProvideMetadataService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once everything is running.
// This triggers lazy initialization of every provider in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[listcodec.Codec](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*service.SiteService](injector)
	_ = do.MustInvoke[*service.MetadataService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
