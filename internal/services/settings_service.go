package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/varmina-joyas/store/internal/domain"
	"github.com/varmina-joyas/store/internal/repositories"
)

const defaultUSDExchangeRate = 950

var (
	// ErrSettingsInvalidInput indicates the caller provided an invalid argument.
	ErrSettingsInvalidInput = errors.New("settings: invalid input")
	// ErrSettingsRepositoryUnavailable indicates the persistence layer is unavailable.
	ErrSettingsRepositoryUnavailable = errors.New("settings: repository unavailable")
	// ErrSettingsRepositoryFailure wraps unexpected repository failures.
	ErrSettingsRepositoryFailure = errors.New("settings: repository failure")
)

// SettingsServiceDeps wires dependencies for the settings service implementation.
type SettingsServiceDeps struct {
	Repository repositories.SettingsRepository
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type settingsService struct {
	repo      repositories.SettingsRepository
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
	sanitizer *bluemonday.Policy
}

// NewSettingsService constructs a SettingsService backed by the provided dependencies.
func NewSettingsService(deps SettingsServiceDeps) (SettingsService, error) {
	if deps.Repository == nil {
		return nil, errors.New("settings service: repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &settingsService{
		repo:      deps.Repository,
		now:       func() time.Time { return clock().UTC() },
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// GetSettings returns the brand settings record. A missing record yields the
// built-in defaults with ok=false rather than an error so the storefront can
// render while callers decide whether to keep a previously cached value.
func (s *settingsService) GetSettings(ctx context.Context) (BrandSettings, bool, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return defaultBrandSettings(), false, nil
		}
		return BrandSettings{}, false, s.mapRepositoryError(err)
	}
	if settings.USDExchangeRate <= 0 {
		settings.USDExchangeRate = defaultUSDExchangeRate
	}
	settings.AnnouncementText = s.sanitize(settings.AnnouncementText)
	return settings, true, nil
}

// SaveSettings validates and persists the brand settings record.
func (s *settingsService) SaveSettings(ctx context.Context, settings BrandSettings) (BrandSettings, error) {
	settings.BrandName = strings.TrimSpace(settings.BrandName)
	if settings.BrandName == "" {
		return BrandSettings{}, fmt.Errorf("%w: brand name is required", ErrSettingsInvalidInput)
	}
	settings.WhatsappNumber = strings.TrimSpace(settings.WhatsappNumber)
	if settings.USDExchangeRate <= 0 {
		return BrandSettings{}, fmt.Errorf("%w: usd exchange rate must be positive", ErrSettingsInvalidInput)
	}
	settings.AnnouncementText = s.sanitize(settings.AnnouncementText)

	now := s.now()
	if err := s.repo.Save(ctx, settings, now); err != nil {
		return BrandSettings{}, s.mapRepositoryError(err)
	}
	settings.UpdatedAt = now

	s.logger(ctx, "settings.saved", map[string]any{"brand": settings.BrandName})
	return settings, nil
}

// sanitize strips any markup from operator-entered announcement text before
// it reaches the storefront banner.
func (s *settingsService) sanitize(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}

func defaultBrandSettings() domain.BrandSettings {
	return domain.BrandSettings{
		BrandName:       "Varmina Joyas",
		USDExchangeRate: defaultUSDExchangeRate,
	}
}

func (s *settingsService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return fmt.Errorf("%w: %v", ErrSettingsRepositoryUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrSettingsRepositoryFailure, err)
}
