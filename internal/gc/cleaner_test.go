package gc

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/varmina-joyas/store/internal/domain"
	"github.com/varmina-joyas/store/internal/services"
)

const bucketPrefix = "https://storage.googleapis.com/product-images/"

type fakeBucket struct {
	mu      sync.Mutex
	objects []string
	deleted []string
	failOn  map[string]error
	listErr error
}

func (b *fakeBucket) List(context.Context) ([]string, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]string{}, b.objects...), nil
}

func (b *fakeBucket) Delete(_ context.Context, object string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failOn[object]; err != nil {
		return err
	}
	b.deleted = append(b.deleted, object)
	return nil
}

func (b *fakeBucket) ObjectName(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, bucketPrefix) {
		return "", false
	}
	return strings.TrimPrefix(rawURL, bucketPrefix), true
}

type gcProductService struct {
	services.ProductService
	products []domain.Product
	err      error
}

func (s *gcProductService) ListProducts(context.Context) ([]domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

type gcSettingsService struct {
	services.SettingsService
	settings domain.BrandSettings
}

func (s *gcSettingsService) GetSettings(context.Context) (domain.BrandSettings, bool, error) {
	return s.settings, true, nil
}

func newCleanerForTest(t *testing.T, products []domain.Product, settings domain.BrandSettings, bucket *fakeBucket, dryRun bool) *Cleaner {
	t.Helper()
	cleaner, err := NewCleaner(CleanerDeps{
		Products:  &gcProductService{products: products},
		Settings:  &gcSettingsService{settings: settings},
		Bucket:    bucket,
		ChunkSize: 2,
		DryRun:    dryRun,
	})
	if err != nil {
		t.Fatalf("NewCleaner returned error: %v", err)
	}
	return cleaner
}

func TestRunDeletesOnlyOrphans(t *testing.T) {
	products := []domain.Product{
		{
			ID:     "prod-1",
			Images: []string{bucketPrefix + "a.webp"},
			Variants: []domain.Variant{
				{Name: "Oro", Images: []string{bucketPrefix + "b.webp"}},
			},
		},
	}
	settings := domain.BrandSettings{
		LogoURL:      bucketPrefix + "logo.png",
		HeroImageURL: "https://cdn.example.com/external-hero.jpg",
	}
	bucket := &fakeBucket{objects: []string{"a.webp", "b.webp", "logo.png", "orphan1.webp", "orphan2.webp", "orphan3.webp"}}

	report, err := newCleanerForTest(t, products, settings, bucket, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Referenced != 3 {
		t.Fatalf("expected 3 referenced objects, got %d", report.Referenced)
	}
	want := []string{"orphan1.webp", "orphan2.webp", "orphan3.webp"}
	if !reflect.DeepEqual(bucket.deleted, want) {
		t.Fatalf("expected orphans deleted, got %v", bucket.deleted)
	}
	if report.Deleted != 3 || len(report.Failed) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunAbortsWhenNoReferencesResolve(t *testing.T) {
	products := []domain.Product{
		{ID: "prod-1", Images: []string{"https://cdn.example.com/foreign.jpg"}},
	}
	bucket := &fakeBucket{objects: []string{"a.webp", "b.webp"}}

	_, err := newCleanerForTest(t, products, domain.BrandSettings{}, bucket, false).Run(context.Background())
	if !errors.Is(err, ErrEmptyReferenceSet) {
		t.Fatalf("expected ErrEmptyReferenceSet, got %v", err)
	}
	if len(bucket.deleted) != 0 {
		t.Fatalf("expected nothing deleted, got %v", bucket.deleted)
	}
}

func TestRunWithEmptyCatalogCleansBucket(t *testing.T) {
	bucket := &fakeBucket{objects: []string{"stale1.webp", "stale2.webp"}}

	report, err := newCleanerForTest(t, nil, domain.BrandSettings{}, bucket, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Deleted != 2 {
		t.Fatalf("expected full cleanup of empty catalog, got %+v", report)
	}
}

func TestRunDryRunDeletesNothing(t *testing.T) {
	bucket := &fakeBucket{objects: []string{"orphan.webp"}}

	report, err := newCleanerForTest(t, nil, domain.BrandSettings{}, bucket, true).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(report.Orphans) != 1 || report.Deleted != 0 {
		t.Fatalf("expected orphans reported but not deleted, got %+v", report)
	}
	if len(bucket.deleted) != 0 {
		t.Fatalf("expected no deletions in dry run, got %v", bucket.deleted)
	}
}

func TestRunRecordsFailedDeletions(t *testing.T) {
	bucket := &fakeBucket{
		objects: []string{"orphan1.webp", "orphan2.webp"},
		failOn:  map[string]error{"orphan1.webp": errors.New("permission denied")},
	}

	report, err := newCleanerForTest(t, nil, domain.BrandSettings{}, bucket, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Deleted != 1 || !reflect.DeepEqual(report.Failed, []string{"orphan1.webp"}) {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunPropagatesListErrors(t *testing.T) {
	bucket := &fakeBucket{listErr: errors.New("bucket unavailable")}

	_, err := newCleanerForTest(t, nil, domain.BrandSettings{}, bucket, false).Run(context.Background())
	if err == nil {
		t.Fatal("expected list error to propagate")
	}
}
