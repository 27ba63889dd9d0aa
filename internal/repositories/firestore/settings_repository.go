package firestore

import (
	"context"
	"errors"
	"time"

	"github.com/varmina-joyas/store/internal/domain"
	pfirestore "github.com/varmina-joyas/store/internal/platform/firestore"
	"github.com/varmina-joyas/store/internal/repositories"
)

const (
	settingsCollection = "brand_settings"
	settingsDocumentID = "default"
)

// SettingsRepository persists the singleton brand settings record.
type SettingsRepository struct {
	settings *pfirestore.BaseRepository[settingsDocument]
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(provider *pfirestore.Provider) (*SettingsRepository, error) {
	if provider == nil {
		return nil, errors.New("settings repository requires firestore provider")
	}
	return &SettingsRepository{
		settings: pfirestore.NewBaseRepository[settingsDocument](provider, settingsCollection),
	}, nil
}

type settingsDocument struct {
	BrandName          string    `firestore:"brand_name"`
	WhatsappNumber     string    `firestore:"whatsapp_number"`
	WhatsappTemplate   string    `firestore:"whatsapp_template"`
	USDExchangeRate    int64     `firestore:"usd_exchange_rate"`
	AnnouncementText   string    `firestore:"announcement_text"`
	AnnouncementColor  string    `firestore:"announcement_color"`
	InstagramURL       string    `firestore:"instagram_url"`
	LogoURL            string    `firestore:"logo_url"`
	HeroImageURL       string    `firestore:"hero_image_url"`
	HeroImageMobileURL string    `firestore:"hero_image_mobile_url"`
	UpdatedAt          time.Time `firestore:"updated_at"`
}

func (d settingsDocument) toDomain() domain.BrandSettings {
	return domain.BrandSettings{
		BrandName:          d.BrandName,
		WhatsappNumber:     d.WhatsappNumber,
		WhatsappTemplate:   d.WhatsappTemplate,
		USDExchangeRate:    d.USDExchangeRate,
		AnnouncementText:   d.AnnouncementText,
		AnnouncementColor:  d.AnnouncementColor,
		InstagramURL:       d.InstagramURL,
		LogoURL:            d.LogoURL,
		HeroImageURL:       d.HeroImageURL,
		HeroImageMobileURL: d.HeroImageMobileURL,
		UpdatedAt:          d.UpdatedAt,
	}
}

// Get returns the brand settings record.
func (r *SettingsRepository) Get(ctx context.Context) (domain.BrandSettings, error) {
	doc, err := r.settings.Get(ctx, settingsDocumentID)
	if err != nil {
		return domain.BrandSettings{}, err
	}
	return doc.Data.toDomain(), nil
}

// Save upserts the brand settings record.
func (r *SettingsRepository) Save(ctx context.Context, settings domain.BrandSettings, now time.Time) error {
	return r.settings.Set(ctx, settingsDocumentID, settingsDocument{
		BrandName:          settings.BrandName,
		WhatsappNumber:     settings.WhatsappNumber,
		WhatsappTemplate:   settings.WhatsappTemplate,
		USDExchangeRate:    settings.USDExchangeRate,
		AnnouncementText:   settings.AnnouncementText,
		AnnouncementColor:  settings.AnnouncementColor,
		InstagramURL:       settings.InstagramURL,
		LogoURL:            settings.LogoURL,
		HeroImageURL:       settings.HeroImageURL,
		HeroImageMobileURL: settings.HeroImageMobileURL,
		UpdatedAt:          now.UTC(),
	})
}

var _ repositories.SettingsRepository = (*SettingsRepository)(nil)
