// Package di assembles the runtime dependency graph. Everything is
// constructed once at startup and handed to the rendering layer; nothing in
// the core reaches for ambient globals.
package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/varmina-joyas/store/internal/platform/auth"
	"github.com/varmina-joyas/store/internal/platform/config"
	pfirestore "github.com/varmina-joyas/store/internal/platform/firestore"
	"github.com/varmina-joyas/store/internal/platform/localstore"
	pstorage "github.com/varmina-joyas/store/internal/platform/storage"
	firestoreRepo "github.com/varmina-joyas/store/internal/repositories/firestore"
	"github.com/varmina-joyas/store/internal/services"
	"github.com/varmina-joyas/store/internal/store"
)

// Container holds the wired runtime dependencies.
type Container struct {
	Config config.Config
	Logger *zap.Logger

	Firestore *pfirestore.Provider
	Storage   *pstorage.Client
	Verifier  *auth.FirebaseVerifier
	Local     localstore.Store

	Products services.ProductService
	Settings services.SettingsService
	Identity services.IdentityService
	Authz    services.AuthzService

	Notifier *store.Notifier
	Catalog  *store.CatalogStore
	Cart     *store.CartStore
	Session  *store.SessionGate
	Admin    *store.AdminController
	Theme    *store.ThemeStore
}

// NewContainer constructs the full dependency graph from configuration.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := pfirestore.NewProvider(cfg.Firestore)

	storageClient, err := pstorage.NewClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("di: storage client: %w", err)
	}

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		return nil, fmt.Errorf("di: firebase verifier: %w", err)
	}

	local, err := localstore.NewFileStore(cfg.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("di: local store: %w", err)
	}

	productRepo, err := firestoreRepo.NewProductRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("di: product repository: %w", err)
	}
	settingsRepo, err := firestoreRepo.NewSettingsRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("di: settings repository: %w", err)
	}
	roleRepo, err := firestoreRepo.NewRoleRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("di: role repository: %w", err)
	}

	productService, err := services.NewProductService(services.ProductServiceDeps{
		Repository: productRepo,
		Images:     storageClient,
		Clock:      time.Now,
		Logger:     zapEventLogger(logger.Named("products")),
	})
	if err != nil {
		return nil, fmt.Errorf("di: product service: %w", err)
	}

	settingsService, err := services.NewSettingsService(services.SettingsServiceDeps{
		Repository: settingsRepo,
		Clock:      time.Now,
		Logger:     zapEventLogger(logger.Named("settings")),
	})
	if err != nil {
		return nil, fmt.Errorf("di: settings service: %w", err)
	}

	identityService, err := services.NewIdentityService(services.IdentityServiceDeps{
		Config:   cfg.Firebase,
		Verifier: verifier,
		Local:    local,
		Clock:    time.Now,
		Logger:   zapEventLogger(logger.Named("identity")),
	})
	if err != nil {
		return nil, fmt.Errorf("di: identity service: %w", err)
	}

	authzService, err := services.NewAuthzService(services.AuthzServiceDeps{
		Roles:  roleRepo,
		Logger: zapEventLogger(logger.Named("authz")),
	})
	if err != nil {
		return nil, fmt.Errorf("di: authz service: %w", err)
	}

	notifier := store.NewNotifier(store.WithToastTTL(cfg.Store.ToastTTL))

	catalog, err := store.NewCatalogStore(store.CatalogStoreDeps{
		Products:        productService,
		Settings:        settingsService,
		Notifier:        notifier,
		Logger:          logger.Named("catalog"),
		FetchTimeout:    cfg.Store.FetchTimeout,
		RefreshDebounce: cfg.Store.RefreshDebounce,
	})
	if err != nil {
		return nil, fmt.Errorf("di: catalog store: %w", err)
	}

	cart, err := store.NewCartStore(store.CartStoreDeps{
		Local:    local,
		Catalog:  catalog,
		Notifier: notifier,
		Logger:   logger.Named("cart"),
	})
	if err != nil {
		return nil, fmt.Errorf("di: cart store: %w", err)
	}

	session, err := store.NewSessionGate(store.SessionGateDeps{
		Identity:     identityService,
		Authz:        authzService,
		Notifier:     notifier,
		Logger:       logger.Named("session"),
		AuthzTimeout: cfg.Store.AuthzTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("di: session gate: %w", err)
	}

	admin, err := store.NewAdminController(store.AdminControllerDeps{
		Catalog:  catalog,
		Products: productService,
		Notifier: notifier,
		Logger:   logger.Named("admin"),
	})
	if err != nil {
		return nil, fmt.Errorf("di: admin controller: %w", err)
	}

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Firestore: provider,
		Storage:   storageClient,
		Verifier:  verifier,
		Local:     local,
		Products:  productService,
		Settings:  settingsService,
		Identity:  identityService,
		Authz:     authzService,
		Notifier:  notifier,
		Catalog:   catalog,
		Cart:      cart,
		Session:   session,
		Admin:     admin,
		Theme:     store.NewThemeStore(local),
	}, nil
}

// Close releases held clients and subscriptions.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Session != nil {
		c.Session.Close()
	}
	if c.Storage != nil {
		if err := c.Storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Firestore != nil {
		if err := c.Firestore.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func zapEventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("service log", zFields...)
	}
}
