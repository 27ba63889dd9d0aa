package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/varmina-joyas/store/internal/domain"
	"github.com/varmina-joyas/store/internal/platform/async"
	"github.com/varmina-joyas/store/internal/services"
)

const (
	defaultCatalogFetchTimeout = 10 * time.Second
	defaultRefreshDebounce     = 30 * time.Second
)

// CatalogSnapshot is an immutable view of the catalog published atomically
// after each successful refresh.
type CatalogSnapshot struct {
	Products  []domain.Product
	Settings  domain.BrandSettings
	FetchedAt time.Time
}

// RefreshOptions control a catalog refresh request.
type RefreshOptions struct {
	// Force bypasses the debounce window.
	Force bool
	// Silent suppresses the loading flag and the error toast; the error is
	// still returned.
	Silent bool
}

// CatalogStoreDeps wires dependencies for the catalog store.
type CatalogStoreDeps struct {
	Products services.ProductService
	Settings services.SettingsService
	Notifier *Notifier
	Logger   *zap.Logger
	Clock    func() time.Time

	FetchTimeout    time.Duration
	RefreshDebounce time.Duration
}

// CatalogStore caches the product list and brand settings for rendering.
// Refreshes are debounced and timeout-bounded; readers always see either the
// previous complete snapshot or the new one, never a partial state.
type CatalogStore struct {
	products services.ProductService
	settings services.SettingsService
	notifier *Notifier
	logger   *zap.Logger
	now      func() time.Time

	fetchTimeout time.Duration
	debounce     time.Duration

	mu         sync.Mutex
	snapshot   CatalogSnapshot
	loading    bool
	lastFetch  time.Time
	generation uint64
	currency   domain.Currency
}

// NewCatalogStore constructs a CatalogStore.
func NewCatalogStore(deps CatalogStoreDeps) (*CatalogStore, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog store: product service is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("catalog store: settings service is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("catalog store: notifier is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	fetchTimeout := deps.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultCatalogFetchTimeout
	}
	debounce := deps.RefreshDebounce
	if debounce <= 0 {
		debounce = defaultRefreshDebounce
	}

	return &CatalogStore{
		products:     deps.Products,
		settings:     deps.Settings,
		notifier:     deps.Notifier,
		logger:       logger,
		now:          clock,
		fetchTimeout: fetchTimeout,
		debounce:     debounce,
		currency:     domain.CurrencyCLP,
	}, nil
}

type catalogFetchResult struct {
	products   []domain.Product
	settings   domain.BrandSettings
	settingsOK bool
}

// Refresh fetches products and settings, replacing the snapshot atomically on
// success. Requests inside the debounce window are coalesced into a no-op
// unless forced. On failure or timeout the previous snapshot stays in place;
// the error is returned and, unless silent, surfaced as a toast.
func (s *CatalogStore) Refresh(ctx context.Context, opts RefreshOptions) error {
	now := s.now()

	s.mu.Lock()
	if !opts.Force && !s.lastFetch.IsZero() && now.Sub(s.lastFetch) < s.debounce {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	generation := s.generation
	if !opts.Silent {
		s.loading = true
	}
	// Stamped up front so overlapping calls coalesce; cleared again if the
	// fetch fails.
	s.lastFetch = now
	s.mu.Unlock()

	result, err := async.WithTimeout(ctx, s.fetchTimeout, func(ctx context.Context) (catalogFetchResult, error) {
		products, err := s.products.ListProducts(ctx)
		if err != nil {
			return catalogFetchResult{}, err
		}
		settings, ok, err := s.settings.GetSettings(ctx)
		if err != nil {
			return catalogFetchResult{}, err
		}
		return catalogFetchResult{products: products, settings: settings, settingsOK: ok}, nil
	}, catalogFetchResult{})

	s.mu.Lock()
	// A later refresh owns the snapshot now; this response is stale either way.
	stale := generation != s.generation
	if !stale {
		s.loading = false
		if err == nil {
			settings := result.settings
			if !result.settingsOK && !s.snapshot.FetchedAt.IsZero() {
				// The settings record disappeared; keep the last known values
				// instead of reverting to the built-in defaults.
				settings = s.snapshot.Settings
			}
			s.snapshot = CatalogSnapshot{
				Products:  result.products,
				Settings:  settings,
				FetchedAt: now,
			}
		} else {
			// A failed fetch must not arm the debounce window; the next
			// natural trigger retries right away.
			s.lastFetch = time.Time{}
		}
	}
	s.mu.Unlock()

	if stale {
		return nil
	}
	if err != nil {
		s.logger.Warn("catalog refresh failed", zap.Error(err), zap.Bool("silent", opts.Silent))
		if !opts.Silent {
			s.notifier.Error("No se pudo actualizar el catálogo")
		}
		return err
	}
	return nil
}

// Products returns the products from the current snapshot.
func (s *CatalogStore) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.snapshot.Products))
	copy(out, s.snapshot.Products)
	return out
}

// ProductByID resolves a product from the current snapshot.
func (s *CatalogStore) ProductByID(productID string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.snapshot.Products {
		if p.ID == productID {
			return p, true
		}
	}
	return domain.Product{}, false
}

// Settings returns the brand settings from the current snapshot.
func (s *CatalogStore) Settings() domain.BrandSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Settings
}

// Loading reports whether a refresh is in flight.
func (s *CatalogStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastFetchedAt returns when the snapshot was last replaced.
func (s *CatalogStore) LastFetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.FetchedAt
}

// PatchProduct applies an optimistic local mutation to one product in the
// snapshot. It reports whether the product was present. The patch survives
// until the next successful refresh replaces the snapshot.
func (s *CatalogStore) PatchProduct(productID string, mutate func(*domain.Product)) bool {
	if mutate == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.snapshot.Products {
		if s.snapshot.Products[i].ID != productID {
			continue
		}
		products := make([]domain.Product, len(s.snapshot.Products))
		copy(products, s.snapshot.Products)
		mutate(&products[i])
		s.snapshot.Products = products
		return true
	}
	return false
}

// Currency returns the active display currency.
func (s *CatalogStore) Currency() domain.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currency
}

// SetCurrency switches the display currency.
func (s *CatalogStore) SetCurrency(currency domain.Currency) {
	if currency != domain.CurrencyCLP && currency != domain.CurrencyUSD {
		return
	}
	s.mu.Lock()
	s.currency = currency
	s.mu.Unlock()
}

// ExchangeRate returns the CLP-per-USD rate from settings.
func (s *CatalogStore) ExchangeRate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Settings.USDExchangeRate > 0 {
		return s.snapshot.Settings.USDExchangeRate
	}
	return 950
}
