package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/varmina-joyas/store/internal/domain"
)

type stubSettingsRepo struct {
	mu       sync.Mutex
	stored   domain.BrandSettings
	saved    []domain.BrandSettings
	failWith error
}

func (r *stubSettingsRepo) Get(context.Context) (domain.BrandSettings, error) {
	if r.failWith != nil {
		return domain.BrandSettings{}, r.failWith
	}
	return r.stored, nil
}

func (r *stubSettingsRepo) Save(_ context.Context, settings domain.BrandSettings, now time.Time) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	r.saved = append(r.saved, settings)
	r.stored = settings
	r.mu.Unlock()
	return nil
}

func newSettingsServiceForTest(t *testing.T, repo *stubSettingsRepo) SettingsService {
	t.Helper()
	svc, err := NewSettingsService(SettingsServiceDeps{
		Repository: repo,
		Clock:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewSettingsService returned error: %v", err)
	}
	return svc
}

func TestGetSettingsSanitisesAnnouncement(t *testing.T) {
	repo := &stubSettingsRepo{stored: domain.BrandSettings{
		BrandName:        "Varmina Joyas",
		AnnouncementText: `<script>alert("x")</script> Envío gratis <b>hoy</b>`,
		USDExchangeRate:  900,
	}}
	svc := newSettingsServiceForTest(t, repo)

	settings, ok, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok for a stored record")
	}
	if settings.AnnouncementText != "Envío gratis hoy" {
		t.Fatalf("expected sanitised announcement, got %q", settings.AnnouncementText)
	}
}

func TestGetSettingsDefaultsWhenMissing(t *testing.T) {
	repo := &stubSettingsRepo{failWith: &stubRepoError{notFound: true}}
	svc := newSettingsServiceForTest(t, repo)

	settings, ok, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings returned error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a missing record")
	}
	if settings.USDExchangeRate != 950 {
		t.Fatalf("expected default exchange rate, got %d", settings.USDExchangeRate)
	}
	if settings.BrandName == "" {
		t.Fatal("expected default brand name")
	}
}

func TestGetSettingsBackfillsExchangeRate(t *testing.T) {
	repo := &stubSettingsRepo{stored: domain.BrandSettings{BrandName: "Varmina Joyas"}}
	svc := newSettingsServiceForTest(t, repo)

	settings, _, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings returned error: %v", err)
	}
	if settings.USDExchangeRate != 950 {
		t.Fatalf("expected backfilled exchange rate, got %d", settings.USDExchangeRate)
	}
}

func TestSaveSettingsValidates(t *testing.T) {
	repo := &stubSettingsRepo{}
	svc := newSettingsServiceForTest(t, repo)
	ctx := context.Background()

	if _, err := svc.SaveSettings(ctx, domain.BrandSettings{BrandName: "  ", USDExchangeRate: 900}); !errors.Is(err, ErrSettingsInvalidInput) {
		t.Fatalf("expected ErrSettingsInvalidInput for empty brand, got %v", err)
	}
	if _, err := svc.SaveSettings(ctx, domain.BrandSettings{BrandName: "Varmina", USDExchangeRate: 0}); !errors.Is(err, ErrSettingsInvalidInput) {
		t.Fatalf("expected ErrSettingsInvalidInput for zero rate, got %v", err)
	}
	if len(repo.saved) != 0 {
		t.Fatalf("expected no writes for invalid input, got %d", len(repo.saved))
	}

	saved, err := svc.SaveSettings(ctx, domain.BrandSettings{
		BrandName:        "Varmina",
		USDExchangeRate:  950,
		AnnouncementText: "<i>Nueva colección</i>",
	})
	if err != nil {
		t.Fatalf("SaveSettings returned error: %v", err)
	}
	if saved.AnnouncementText != "Nueva colección" {
		t.Fatalf("expected sanitised announcement persisted, got %q", saved.AnnouncementText)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatal("expected updated timestamp")
	}
}

func TestSettingsRepositoryErrorsAreMapped(t *testing.T) {
	repo := &stubSettingsRepo{failWith: &stubRepoError{unavailable: true}}
	svc := newSettingsServiceForTest(t, repo)

	if _, _, err := svc.GetSettings(context.Background()); !errors.Is(err, ErrSettingsRepositoryUnavailable) {
		t.Fatalf("expected ErrSettingsRepositoryUnavailable, got %v", err)
	}
}
