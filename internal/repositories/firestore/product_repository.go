package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/varmina-joyas/store/internal/domain"
	pfirestore "github.com/varmina-joyas/store/internal/platform/firestore"
	"github.com/varmina-joyas/store/internal/repositories"
)

const productsCollection = "products"

// ProductRepository persists catalog products in Firestore.
type ProductRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a ProductRepository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		provider: provider,
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection),
	}, nil
}

type variantDocument struct {
	ID        string   `firestore:"id"`
	Name      string   `firestore:"name"`
	Price     int64    `firestore:"price"`
	Images    []string `firestore:"images,omitempty"`
	Stock     *int     `firestore:"stock"`
	IsPrimary bool     `firestore:"is_primary"`
}

type productDocument struct {
	Name           string            `firestore:"name"`
	Description    string            `firestore:"description"`
	Price          int64             `firestore:"price"`
	Images         []string          `firestore:"images"`
	Status         string            `firestore:"status"`
	Collection     string            `firestore:"collection"`
	Category       string            `firestore:"category"`
	Badge          string            `firestore:"badge"`
	Variants       []variantDocument `firestore:"variants"`
	UnitCost       int64             `firestore:"unit_cost"`
	Location       string            `firestore:"location"`
	ErpCategory    string            `firestore:"erp_category"`
	WhatsappClicks int64             `firestore:"whatsapp_clicks"`
	CreatedAt      time.Time         `firestore:"created_at"`
	UpdatedAt      time.Time         `firestore:"updated_at"`
}

func newProductDocument(product domain.Product) productDocument {
	return productDocument{
		Name:           product.Name,
		Description:    product.Description,
		Price:          product.Price,
		Images:         product.Images,
		Status:         string(product.Status),
		Collection:     product.Collection,
		Category:       product.Category,
		Badge:          product.Badge,
		Variants:       newVariantDocuments(product.Variants),
		UnitCost:       product.UnitCost,
		Location:       product.Location,
		ErpCategory:    product.ErpCategory,
		WhatsappClicks: product.WhatsappClicks,
		CreatedAt:      product.CreatedAt.UTC(),
		UpdatedAt:      product.UpdatedAt.UTC(),
	}
}

func newVariantDocuments(variants []domain.Variant) []variantDocument {
	if len(variants) == 0 {
		return nil
	}
	docs := make([]variantDocument, 0, len(variants))
	for _, v := range variants {
		docs = append(docs, variantDocument{
			ID:        v.ID,
			Name:      v.Name,
			Price:     v.Price,
			Images:    v.Images,
			Stock:     v.Stock,
			IsPrimary: v.IsPrimary,
		})
	}
	return docs
}

func (d productDocument) toDomain(id string) domain.Product {
	product := domain.Product{
		ID:             id,
		Name:           d.Name,
		Description:    d.Description,
		Price:          d.Price,
		Images:         d.Images,
		Status:         domain.ProductStatus(d.Status),
		Collection:     d.Collection,
		Category:       d.Category,
		Badge:          d.Badge,
		UnitCost:       d.UnitCost,
		Location:       d.Location,
		ErpCategory:    d.ErpCategory,
		WhatsappClicks: d.WhatsappClicks,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if len(d.Variants) > 0 {
		variants := make([]domain.Variant, 0, len(d.Variants))
		for _, v := range d.Variants {
			variants = append(variants, domain.Variant{
				ID:        v.ID,
				Name:      v.Name,
				Price:     v.Price,
				Images:    v.Images,
				Stock:     v.Stock,
				IsPrimary: v.IsPrimary,
			})
		}
		product.Variants = variants
	}
	return product
}

// List returns every product, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.products.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.OrderBy("created_at", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Insert creates a new product document; an existing ID is a conflict.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	ref, err := r.products.DocumentRef(ctx, product.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, newProductDocument(product)); err != nil {
		return pfirestore.WrapError("products.insert", err)
	}
	return nil
}

// Update rewrites the mutable product fields, preserving creation metadata
// and counters, and returns the stored product.
func (r *ProductRepository) Update(ctx context.Context, productID string, update repositories.ProductUpdate, now time.Time) (domain.Product, error) {
	var updated domain.Product
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.products.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode product %s: %w", productID, err)
		}

		doc.Name = update.Name
		doc.Description = update.Description
		doc.Price = update.Price
		doc.Images = update.Images
		doc.Status = string(update.Status)
		doc.Collection = update.Collection
		doc.Category = update.Category
		doc.Badge = update.Badge
		doc.Variants = newVariantDocuments(update.Variants)
		doc.UnitCost = update.UnitCost
		doc.Location = update.Location
		doc.ErpCategory = update.ErpCategory
		doc.UpdatedAt = now.UTC()

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = doc.toDomain(productID)
		return nil
	})
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("products.update", err)
	}
	return updated, nil
}

// UpdateOperational patches the inline-editable operational fields.
func (r *ProductRepository) UpdateOperational(ctx context.Context, productID string, update repositories.OperationalUpdate, now time.Time) (domain.Product, error) {
	var updated domain.Product
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.products.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode product %s: %w", productID, err)
		}

		if update.UnitCost != nil {
			doc.UnitCost = *update.UnitCost
		}
		if update.Location != nil {
			doc.Location = strings.TrimSpace(*update.Location)
		}
		if update.ErpCategory != nil {
			doc.ErpCategory = strings.TrimSpace(*update.ErpCategory)
		}
		doc.UpdatedAt = now.UTC()

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = doc.toDomain(productID)
		return nil
	})
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("products.update_operational", err)
	}
	return updated, nil
}

// Delete removes a product document.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	return r.products.Delete(ctx, productID)
}

// DeleteBulk removes several products through a bulk writer.
func (r *ProductRepository) DeleteBulk(ctx context.Context, productIDs []string) error {
	return r.bulk(ctx, "products.delete_bulk", productIDs, func(bw *firestore.BulkWriter, ref *firestore.DocumentRef) (*firestore.BulkWriterJob, error) {
		return bw.Delete(ref)
	})
}

// UpdateStatusBulk sets the lifecycle status on several products at once.
func (r *ProductRepository) UpdateStatusBulk(ctx context.Context, productIDs []string, productStatus domain.ProductStatus, now time.Time) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(productStatus)},
		{Path: "updated_at", Value: now.UTC()},
	}
	return r.bulk(ctx, "products.update_status_bulk", productIDs, func(bw *firestore.BulkWriter, ref *firestore.DocumentRef) (*firestore.BulkWriterJob, error) {
		return bw.Update(ref, updates)
	})
}

func (r *ProductRepository) bulk(ctx context.Context, op string, productIDs []string, enqueue func(*firestore.BulkWriter, *firestore.DocumentRef) (*firestore.BulkWriterJob, error)) error {
	if len(productIDs) == 0 {
		return nil
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	bw := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(productIDs))
	for _, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		job, err := enqueue(bw, client.Collection(productsCollection).Doc(id))
		if err != nil {
			bw.End()
			return pfirestore.WrapError(op, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return pfirestore.WrapError(op, err)
		}
	}
	return nil
}

// AdjustStock applies a delta to a variant's stock inside a transaction,
// clamping the result at zero. Variants without tracked stock are left alone.
func (r *ProductRepository) AdjustStock(ctx context.Context, productID, variantID string, delta int, now time.Time) (domain.Product, error) {
	var updated domain.Product
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.products.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode product %s: %w", productID, err)
		}

		found := false
		for i := range doc.Variants {
			if doc.Variants[i].ID != variantID {
				continue
			}
			found = true
			if doc.Variants[i].Stock != nil {
				next := *doc.Variants[i].Stock + delta
				if next < 0 {
					next = 0
				}
				doc.Variants[i].Stock = &next
			}
		}
		if !found {
			return fmt.Errorf("product %s has no variant %s", productID, variantID)
		}
		doc.UpdatedAt = now.UTC()

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = doc.toDomain(productID)
		return nil
	})
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("products.adjust_stock", err)
	}
	return updated, nil
}

// IncrementWhatsappClicks bumps the quote-click counter atomically.
func (r *ProductRepository) IncrementWhatsappClicks(ctx context.Context, productID string) error {
	return r.products.Update(ctx, productID, []firestore.Update{
		{Path: "whatsapp_clicks", Value: firestore.Increment(1)},
	})
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
