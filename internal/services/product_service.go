package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/varmina-joyas/store/internal/domain"
	"github.com/varmina-joyas/store/internal/repositories"
)

const (
	maxProductNameLength        = 100
	maxProductDescriptionLength = 2000
	maxImageSizeBytes           = int64(10 * 1024 * 1024) // 10 MiB

	productEventCreated     = "product.created"
	productEventUpdated     = "product.updated"
	productEventDeleted     = "product.deleted"
	productEventBulkStatus  = "product.bulk_status"
	productEventBulkDeleted = "product.bulk_deleted"
	productEventImageUpload = "product.image.uploaded"
)

var (
	// ErrProductInvalidInput indicates the caller provided an invalid argument.
	ErrProductInvalidInput = errors.New("product: invalid input")
	// ErrProductNotFound indicates the product does not exist.
	ErrProductNotFound = errors.New("product: not found")
	// ErrProductRepositoryUnavailable indicates the persistence layer is unavailable.
	ErrProductRepositoryUnavailable = errors.New("product: repository unavailable")
	// ErrProductRepositoryFailure wraps unexpected repository failures.
	ErrProductRepositoryFailure = errors.New("product: repository failure")
)

// ImageStore abstracts the object storage operations the product service needs.
type ImageStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, object string) error
	ObjectName(rawURL string) (string, bool)
}

// ProductServiceDeps wires dependencies for the product service implementation.
type ProductServiceDeps struct {
	Repository  repositories.ProductRepository
	Images      ImageStore
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type productService struct {
	repo   repositories.ProductRepository
	images ImageStore
	now    func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewProductService constructs a ProductService backed by the provided dependencies.
func NewProductService(deps ProductServiceDeps) (ProductService, error) {
	if deps.Repository == nil {
		return nil, errors.New("product service: repository is required")
	}
	if deps.Images == nil {
		return nil, errors.New("product service: image store is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &productService{
		repo:   deps.Repository,
		images: deps.Images,
		now:    func() time.Time { return clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *productService) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return products, nil
}

func (s *productService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	fields, err := s.validateProductFields(cmd)
	if err != nil {
		return Product{}, err
	}

	now := s.now()
	product := domain.Product{
		ID:          s.newID(),
		Name:        fields.Name,
		Description: fields.Description,
		Price:       fields.Price,
		Images:      fields.Images,
		Status:      fields.Status,
		Collection:  fields.Collection,
		Category:    fields.Category,
		Badge:       fields.Badge,
		Variants:    fields.Variants,
		UnitCost:    fields.UnitCost,
		Location:    fields.Location,
		ErpCategory: fields.ErpCategory,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, product); err != nil {
		return Product{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, productEventCreated, map[string]any{"product_id": product.ID})
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	fields, err := s.validateProductFields(cmd.CreateProductCommand)
	if err != nil {
		return Product{}, err
	}

	updated, err := s.repo.Update(ctx, productID, repositories.ProductUpdate{
		Name:        fields.Name,
		Description: fields.Description,
		Price:       fields.Price,
		Images:      fields.Images,
		Status:      fields.Status,
		Collection:  fields.Collection,
		Category:    fields.Category,
		Badge:       fields.Badge,
		Variants:    fields.Variants,
		UnitCost:    fields.UnitCost,
		Location:    fields.Location,
		ErpCategory: fields.ErpCategory,
	}, s.now())
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, productEventUpdated, map[string]any{"product_id": productID})
	return updated, nil
}

func (s *productService) UpdateOperational(ctx context.Context, cmd OperationalEditCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if cmd.UnitCost == nil && cmd.Location == nil && cmd.ErpCategory == nil {
		return Product{}, fmt.Errorf("%w: no fields to update", ErrProductInvalidInput)
	}
	if cmd.UnitCost != nil && *cmd.UnitCost < 0 {
		return Product{}, fmt.Errorf("%w: unit cost must be >= 0", ErrProductInvalidInput)
	}

	updated, err := s.repo.UpdateOperational(ctx, productID, repositories.OperationalUpdate{
		UnitCost:    cmd.UnitCost,
		Location:    cmd.Location,
		ErpCategory: cmd.ErpCategory,
	}, s.now())
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, productEventUpdated, map[string]any{"product_id": productID, "operational": true})
	return updated, nil
}

func (s *productService) DeleteProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger(ctx, productEventDeleted, map[string]any{"product_id": productID})
	return nil
}

func (s *productService) DeleteProductsBulk(ctx context.Context, productIDs []string) error {
	ids, err := normaliseIDList(productIDs)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBulk(ctx, ids); err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger(ctx, productEventBulkDeleted, map[string]any{"count": len(ids)})
	return nil
}

func (s *productService) UpdateStatusBulk(ctx context.Context, productIDs []string, status ProductStatus) error {
	ids, err := normaliseIDList(productIDs)
	if err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrProductInvalidInput, status)
	}
	if err := s.repo.UpdateStatusBulk(ctx, ids, status, s.now()); err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger(ctx, productEventBulkStatus, map[string]any{"count": len(ids), "status": string(status)})
	return nil
}

func (s *productService) UploadImage(ctx context.Context, cmd UploadImageCommand) (string, error) {
	contentType := strings.ToLower(strings.TrimSpace(cmd.ContentType))
	if contentType == "" {
		return "", fmt.Errorf("%w: content type is required", ErrProductInvalidInput)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: content type %q is not an image", ErrProductInvalidInput, contentType)
	}
	if cmd.SizeBytes <= 0 {
		return "", fmt.Errorf("%w: image size must be positive", ErrProductInvalidInput)
	}
	if cmd.SizeBytes > maxImageSizeBytes {
		return "", fmt.Errorf("%w: image exceeds maximum size (%d)", ErrProductInvalidInput, maxImageSizeBytes)
	}
	if cmd.Body == nil {
		return "", fmt.Errorf("%w: image body is required", ErrProductInvalidInput)
	}

	object := s.newID()
	if ext := path.Ext(cmd.FileName); ext != "" {
		object += strings.ToLower(ext)
	}

	url, err := s.images.Upload(ctx, object, contentType, cmd.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProductRepositoryFailure, err)
	}
	s.logger(ctx, productEventImageUpload, map[string]any{"object": object})
	return url, nil
}

// DeleteImage removes a stored product image. URLs that do not point at the
// managed bucket are ignored so externally hosted images survive untouched.
func (s *productService) DeleteImage(ctx context.Context, imageURL string) error {
	object, ok := s.images.ObjectName(strings.TrimSpace(imageURL))
	if !ok {
		return nil
	}
	if err := s.images.Delete(ctx, object); err != nil {
		return fmt.Errorf("%w: %v", ErrProductRepositoryFailure, err)
	}
	return nil
}

func (s *productService) AdjustStock(ctx context.Context, productID, variantID string, delta int) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if delta == 0 {
		return Product{}, fmt.Errorf("%w: stock delta must be non-zero", ErrProductInvalidInput)
	}

	// Stock is tracked per variant. Without a variant there is nothing to
	// adjust, so the product is returned unchanged.
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		product, err := s.repo.FindByID(ctx, productID)
		if err != nil {
			return Product{}, s.mapRepositoryError(err)
		}
		return product, nil
	}

	updated, err := s.repo.AdjustStock(ctx, productID, variantID, delta, s.now())
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return updated, nil
}

func (s *productService) RegisterWhatsappClick(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if err := s.repo.IncrementWhatsappClicks(ctx, productID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

type validatedProductFields struct {
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

// validateProductFields checks every field before any network call is made.
func (s *productService) validateProductFields(cmd CreateProductCommand) (validatedProductFields, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return validatedProductFields{}, fmt.Errorf("%w: name is required", ErrProductInvalidInput)
	}
	if len([]rune(name)) > maxProductNameLength {
		return validatedProductFields{}, fmt.Errorf("%w: name exceeds %d characters", ErrProductInvalidInput, maxProductNameLength)
	}

	description := strings.TrimSpace(cmd.Description)
	if len([]rune(description)) > maxProductDescriptionLength {
		return validatedProductFields{}, fmt.Errorf("%w: description exceeds %d characters", ErrProductInvalidInput, maxProductDescriptionLength)
	}

	if cmd.Price < 0 {
		return validatedProductFields{}, fmt.Errorf("%w: price must be >= 0", ErrProductInvalidInput)
	}
	if cmd.UnitCost < 0 {
		return validatedProductFields{}, fmt.Errorf("%w: unit cost must be >= 0", ErrProductInvalidInput)
	}

	status := cmd.Status
	if status == "" {
		status = domain.StatusInStock
	}
	if !status.Valid() {
		return validatedProductFields{}, fmt.Errorf("%w: unknown status %q", ErrProductInvalidInput, cmd.Status)
	}

	variants, err := s.normaliseVariants(cmd.Variants)
	if err != nil {
		return validatedProductFields{}, err
	}

	return validatedProductFields{
		Name:        name,
		Description: description,
		Price:       cmd.Price,
		Images:      cmd.Images,
		Status:      status,
		Collection:  strings.TrimSpace(cmd.Collection),
		Category:    strings.TrimSpace(cmd.Category),
		Badge:       strings.TrimSpace(cmd.Badge),
		Variants:    variants,
		UnitCost:    cmd.UnitCost,
		Location:    strings.TrimSpace(cmd.Location),
		ErpCategory: strings.TrimSpace(cmd.ErpCategory),
	}, nil
}

// normaliseVariants assigns missing variant IDs and enforces the single
// primary variant invariant: exactly one primary when any variants exist.
func (s *productService) normaliseVariants(variants []Variant) ([]Variant, error) {
	if len(variants) == 0 {
		return nil, nil
	}

	out := make([]Variant, 0, len(variants))
	seenNames := make(map[string]struct{}, len(variants))
	primaryIndex := -1
	for i, v := range variants {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: variant name is required", ErrProductInvalidInput)
		}
		if _, dup := seenNames[name]; dup {
			return nil, fmt.Errorf("%w: duplicate variant name %q", ErrProductInvalidInput, name)
		}
		seenNames[name] = struct{}{}
		if v.Price < 0 {
			return nil, fmt.Errorf("%w: variant price must be >= 0", ErrProductInvalidInput)
		}
		if v.Stock != nil && *v.Stock < 0 {
			return nil, fmt.Errorf("%w: variant stock must be >= 0", ErrProductInvalidInput)
		}
		if v.IsPrimary {
			if primaryIndex >= 0 {
				return nil, fmt.Errorf("%w: only one variant can be primary", ErrProductInvalidInput)
			}
			primaryIndex = i
		}
		v.Name = name
		if strings.TrimSpace(v.ID) == "" {
			v.ID = s.newID()
		}
		out = append(out, v)
	}
	if primaryIndex < 0 {
		out[0].IsPrimary = true
	}
	return out, nil
}

func normaliseIDList(productIDs []string) ([]string, error) {
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one product id is required", ErrProductInvalidInput)
	}
	return ids, nil
}

func (s *productService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrProductNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrProductRepositoryUnavailable, err)
		default:
			return fmt.Errorf("%w: %v", ErrProductRepositoryFailure, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrProductRepositoryFailure, err)
}
