package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/configs"
	"github.com/avatarctic/services-marketplace/go/internal/application/entitlement"
	"github.com/avatarctic/services-marketplace/go/internal/application/i18n"
	"github.com/avatarctic/services-marketplace/go/internal/application/querycache"
	"github.com/avatarctic/services-marketplace/go/internal/application/toast"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/httpclient"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/locales"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/marketapi"
)

// app is one client session: a cache, the API behind it, the active message
// catalog, the entitlement resolver and the toast queue.
type app struct {
	cfg      *configs.Config
	logger   *logrus.Logger
	cache    *querycache.Client
	api      *marketapi.Client
	catalog  *i18n.Catalog
	resolver *entitlement.Resolver
	toasts   *toast.Notifier
}

func newApp(ctx context.Context, cfg *configs.Config, locale string) (*app, error) {
	logger := cfg.Log.NewLogger()

	transport, err := httpclient.New(cfg.Client.BaseURL,
		httpclient.WithToken(cfg.Client.AccessToken),
		httpclient.WithTimeout(cfg.Client.RequestTimeout),
		httpclient.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	api := marketapi.New(transport)

	loaders := locales.Embedded()
	if cfg.Locale.Dir != "" {
		overrides, err := locales.FromDir(cfg.Locale.Dir)
		if err != nil {
			return nil, fmt.Errorf("load locale overrides: %w", err)
		}
		loaders = locales.Merge(loaders, overrides)
	}
	catalog, err := i18n.NewCatalog(cfg.Locale.Default, loaders, logger)
	if err != nil {
		return nil, err
	}
	if locale == "" {
		locale = cfg.Locale.Default
	}
	if _, err := catalog.Use(ctx, locale); err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	cache := querycache.Init(querycache.Options{
		StaleTime:          cfg.Cache.StaleTime,
		GCTime:             cfg.Cache.GCTime,
		RequestTimeout:     cfg.Client.RequestTimeout,
		RefetchOnMount:     cfg.Cache.RefetchOnMount,
		RefetchOnFocus:     cfg.Cache.RefetchOnFocus,
		RefetchOnReconnect: cfg.Cache.RefetchOnReconnect,
		ReadRetry:          querycache.ReadPolicy(cfg.Retry.ReadRetries),
		WriteRetry:         querycache.WritePolicy(cfg.Retry.WriteRetries),
		RetryBaseDelay:     cfg.Retry.BaseDelay,
		RetryMaxDelay:      cfg.Retry.MaxDelay,
		Clock:              clock,
		Logger:             logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		cache:    cache,
		api:      api,
		catalog:  catalog,
		resolver: entitlement.NewResolver(cache, api, catalog, logger),
		toasts: toast.New(clock, toast.Config{
			DefaultDuration: cfg.Toast.DefaultDuration,
			Limit:           cfg.Toast.Limit,
		}, logger),
	}, nil
}

func (a *app) close() {
	a.resolver.Stop()
	a.toasts.Clear()
	querycache.Shutdown()
}

// failure shows a destructive toast describing err in the active locale.
func (a *app) failure(err error) {
	a.toasts.Show(toast.Options{
		Title:       a.catalog.T(errorMessageKey(fault.Classify(err))),
		Description: err.Error(),
		Variant:     toast.VariantDestructive,
	})
}

func errorMessageKey(class fault.Class) string {
	switch class {
	case fault.ClassUnauthorized:
		return "errors.unauthorized"
	case fault.ClassNotFound:
		return "errors.notFound"
	case fault.ClassBadRequest:
		return "errors.badRequest"
	case fault.ClassTransient:
		return "errors.transient"
	case fault.ClassStructural:
		return "errors.structural"
	default:
		return "errors.other"
	}
}
