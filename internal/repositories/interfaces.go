package repositories

import (
	"context"
	"time"

	"github.com/varmina-joyas/store/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductUpdate carries the mutable product fields for a full update.
type ProductUpdate struct {
	Name        string
	Description string
	Price       int64
	Images      []string
	Status      domain.ProductStatus
	Collection  string
	Category    string
	Badge       string
	Variants    []domain.Variant
	UnitCost    int64
	Location    string
	ErpCategory string
}

// OperationalUpdate carries the inline-editable operational fields.
type OperationalUpdate struct {
	UnitCost    *int64
	Location    *string
	ErpCategory *string
}

// ProductRepository persists catalog products.
type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, productID string, update ProductUpdate, now time.Time) (domain.Product, error)
	UpdateOperational(ctx context.Context, productID string, update OperationalUpdate, now time.Time) (domain.Product, error)
	Delete(ctx context.Context, productID string) error
	DeleteBulk(ctx context.Context, productIDs []string) error
	UpdateStatusBulk(ctx context.Context, productIDs []string, status domain.ProductStatus, now time.Time) error
	AdjustStock(ctx context.Context, productID, variantID string, delta int, now time.Time) (domain.Product, error)
	IncrementWhatsappClicks(ctx context.Context, productID string) error
}

// SettingsRepository persists the singleton brand settings record.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.BrandSettings, error)
	Save(ctx context.Context, settings domain.BrandSettings, now time.Time) error
}

// RoleRepository resolves the role assigned to an authenticated user.
type RoleRepository interface {
	FindRole(ctx context.Context, userID string) (string, error)
}
