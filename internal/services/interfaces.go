package services

import (
	"context"
	"io"

	"github.com/varmina-joyas/store/internal/domain"
	"github.com/varmina-joyas/store/internal/platform/auth"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product       = domain.Product
	Variant       = domain.Variant
	ProductStatus = domain.ProductStatus
	BrandSettings = domain.BrandSettings
	Identity      = auth.Identity
	StateChange   = auth.StateChange
)

// CreateProductCommand carries the fields for a new catalog piece.
type CreateProductCommand struct {
	Name        string
	Description string
	Price       int64
	Images      []string
	Status      ProductStatus
	Collection  string
	Category    string
	Badge       string
	Variants    []Variant
	UnitCost    int64
	Location    string
	ErpCategory string
}

// UpdateProductCommand rewrites an existing product's mutable fields.
type UpdateProductCommand struct {
	ProductID string
	CreateProductCommand
}

// OperationalEditCommand patches the inline-editable operational fields.
// Nil fields are left unchanged.
type OperationalEditCommand struct {
	ProductID   string
	UnitCost    *int64
	Location    *string
	ErpCategory *string
}

// UploadImageCommand streams a product image into object storage.
type UploadImageCommand struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

// ProductService orchestrates catalog CRUD, image handling, and counters.
type ProductService interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	UpdateOperational(ctx context.Context, cmd OperationalEditCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	DeleteProductsBulk(ctx context.Context, productIDs []string) error
	UpdateStatusBulk(ctx context.Context, productIDs []string, status ProductStatus) error
	UploadImage(ctx context.Context, cmd UploadImageCommand) (string, error)
	DeleteImage(ctx context.Context, imageURL string) error
	AdjustStock(ctx context.Context, productID, variantID string, delta int) (Product, error)
	RegisterWhatsappClick(ctx context.Context, productID string) error
}

// SettingsService serves the singleton brand settings record.
type SettingsService interface {
	// GetSettings returns the stored settings. When no record exists it
	// returns the built-in defaults with ok=false so callers holding a
	// previously fetched value can keep it.
	GetSettings(ctx context.Context) (settings BrandSettings, ok bool, err error)
	SaveSettings(ctx context.Context, settings BrandSettings) (BrandSettings, error)
}

// IdentityService handles sign-in, session restoration, and auth-state fan-out.
type IdentityService interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context) error
	RestoreSession(ctx context.Context) (*Identity, error)
	CurrentIdentity() *Identity
	OnAuthStateChange(fn func(StateChange)) (unsubscribe func())
}

// AuthzService answers role questions about authenticated users.
type AuthzService interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}
