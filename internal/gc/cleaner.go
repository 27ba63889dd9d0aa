// Package gc removes orphaned product images from object storage. It is an
// offline maintenance tool: the referenced-image set is computed from the
// catalog and brand settings, diffed against the bucket listing, and the
// difference deleted in small batches.
package gc

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/varmina-joyas/store/internal/platform/observability"
	"github.com/varmina-joyas/store/internal/services"
)

const defaultDeleteChunkSize = 10

// ErrEmptyReferenceSet aborts a run where products exist but no image could
// be resolved to a bucket object. That shape almost always means a resolution
// bug, and deleting the whole bucket on its strength is not acceptable.
var ErrEmptyReferenceSet = errors.New("gc: no referenced images resolved while products exist")

// BucketStore is the slice of the storage client the cleaner needs.
type BucketStore interface {
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, object string) error
	ObjectName(rawURL string) (string, bool)
}

// CleanerDeps wires dependencies for the cleaner.
type CleanerDeps struct {
	Products services.ProductService
	Settings services.SettingsService
	Bucket   BucketStore
	Logger   *zap.Logger

	// ChunkSize caps objects deleted per batch; defaults to 10.
	ChunkSize int
	// DryRun reports orphans without deleting them.
	DryRun bool
}

// Report summarises one garbage-collection run.
type Report struct {
	BucketObjects int
	Referenced    int
	Orphans       []string
	Deleted       int
	Failed        []string
}

// Cleaner diffs referenced image objects against the bucket listing.
type Cleaner struct {
	products  services.ProductService
	settings  services.SettingsService
	bucket    BucketStore
	logger    *zap.Logger
	chunkSize int
	dryRun    bool
}

// NewCleaner constructs a Cleaner.
func NewCleaner(deps CleanerDeps) (*Cleaner, error) {
	if deps.Products == nil {
		return nil, errors.New("gc: product service is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("gc: settings service is required")
	}
	if deps.Bucket == nil {
		return nil, errors.New("gc: bucket store is required")
	}
	chunkSize := deps.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultDeleteChunkSize
	}

	return &Cleaner{
		products:  deps.Products,
		settings:  deps.Settings,
		bucket:    deps.Bucket,
		logger:    deps.Logger,
		chunkSize: chunkSize,
		dryRun:    deps.DryRun,
	}, nil
}

// Run computes and deletes orphaned bucket objects. Failed deletions are
// recorded in the report and do not stop the run.
func (c *Cleaner) Run(ctx context.Context) (Report, error) {
	var report Report

	logger := c.logger
	if logger == nil {
		logger = observability.FromContext(ctx)
	}

	products, err := c.products.ListProducts(ctx)
	if err != nil {
		return report, err
	}
	settings, _, err := c.settings.GetSettings(ctx)
	if err != nil {
		return report, err
	}

	referenced := make(map[string]struct{})
	addURL := func(rawURL string) {
		if rawURL == "" {
			return
		}
		if object, ok := c.bucket.ObjectName(rawURL); ok {
			referenced[object] = struct{}{}
		}
	}
	for _, product := range products {
		for _, image := range product.Images {
			addURL(image)
		}
		for _, variant := range product.Variants {
			for _, image := range variant.Images {
				addURL(image)
			}
		}
	}
	addURL(settings.LogoURL)
	addURL(settings.HeroImageURL)
	addURL(settings.HeroImageMobileURL)
	report.Referenced = len(referenced)

	if len(products) > 0 && len(referenced) == 0 {
		return report, ErrEmptyReferenceSet
	}

	objects, err := c.bucket.List(ctx)
	if err != nil {
		return report, err
	}
	report.BucketObjects = len(objects)

	for _, object := range objects {
		if _, ok := referenced[object]; !ok {
			report.Orphans = append(report.Orphans, object)
		}
	}
	logger.Info("gc scan complete",
		zap.Int("bucket_objects", report.BucketObjects),
		zap.Int("referenced", report.Referenced),
		zap.Int("orphans", len(report.Orphans)),
		zap.Bool("dry_run", c.dryRun))

	if c.dryRun {
		return report, nil
	}

	for start := 0; start < len(report.Orphans); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(report.Orphans) {
			end = len(report.Orphans)
		}
		for _, object := range report.Orphans[start:end] {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := c.bucket.Delete(ctx, object); err != nil {
				logger.Warn("gc delete failed", zap.String("object", object), zap.Error(err))
				report.Failed = append(report.Failed, object)
				continue
			}
			report.Deleted++
		}
		logger.Info("gc batch processed",
			zap.Int("deleted", report.Deleted),
			zap.Int("failed", len(report.Failed)))
	}

	return report, nil
}
