package store

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/varmina-joyas/store/internal/domain"
	"github.com/varmina-joyas/store/internal/platform/localstore"
)

// ProductResolver resolves a product by id against the current catalog.
// *CatalogStore satisfies it.
type ProductResolver interface {
	ProductByID(productID string) (domain.Product, bool)
}

// CartStoreDeps wires dependencies for the cart store.
type CartStoreDeps struct {
	Local    localstore.Store
	Catalog  ProductResolver
	Notifier *Notifier
	Logger   *zap.Logger
}

// CartStore keeps the shopping cart. Lines are keyed by product id plus
// variant name and never snapshot prices; totals are always resolved against
// the live catalog. Every mutation persists synchronously.
type CartStore struct {
	local    localstore.Store
	catalog  ProductResolver
	notifier *Notifier
	logger   *zap.Logger

	mu    sync.Mutex
	lines []domain.CartLine
	open  bool
}

// NewCartStore constructs a CartStore, loading any persisted lines. A corrupt
// or absent blob yields an empty cart.
func NewCartStore(deps CartStoreDeps) (*CartStore, error) {
	if deps.Local == nil {
		return nil, errors.New("cart store: local store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart store: catalog resolver is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("cart store: notifier is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &CartStore{
		local:    deps.Local,
		catalog:  deps.Catalog,
		notifier: deps.Notifier,
		logger:   logger,
	}

	var lines []domain.CartLine
	if localstore.GetJSON(deps.Local, localstore.KeyCart, &lines) {
		for _, line := range lines {
			if line.ProductID == "" || line.Quantity < 1 {
				continue
			}
			c.lines = append(c.lines, line)
		}
	}
	return c, nil
}

// AddItem adds a quantity of a product variant to the cart and opens the cart
// panel. Lines for the same product and variant are merged.
func (c *CartStore) AddItem(productID, variantName string, quantity int) {
	if productID == "" || quantity < 1 {
		return
	}

	c.mu.Lock()
	merged := false
	for i := range c.lines {
		if c.lines[i].ProductID == productID && c.lines[i].VariantName == variantName {
			c.lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		c.lines = append(c.lines, domain.CartLine{
			ProductID:   productID,
			VariantName: variantName,
			Quantity:    quantity,
		})
	}
	c.open = true
	c.persistLocked()
	c.mu.Unlock()

	c.notifier.Success("Agregado al carrito")
}

// UpdateQuantity sets the quantity of a line. Anything below one removes the
// line entirely.
func (c *CartStore) UpdateQuantity(productID, variantName string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID != productID || c.lines[i].VariantName != variantName {
			continue
		}
		if quantity < 1 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		} else {
			c.lines[i].Quantity = quantity
		}
		c.persistLocked()
		return
	}
}

// RemoveItem removes a line.
func (c *CartStore) RemoveItem(productID, variantName string) {
	c.UpdateQuantity(productID, variantName, 0)
}

// Clear empties the cart.
func (c *CartStore) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.persistLocked()
	c.mu.Unlock()
}

// Lines returns a snapshot of the cart lines in insertion order.
func (c *CartStore) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalItems sums the quantities across all lines.
func (c *CartStore) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice sums line totals in CLP using live catalog prices. Lines whose
// product has left the catalog contribute nothing.
func (c *CartStore) TotalPrice() int64 {
	var total int64
	for _, line := range c.Lines() {
		product, ok := c.catalog.ProductByID(line.ProductID)
		if !ok {
			continue
		}
		total += product.EffectivePrice(line.VariantName) * int64(line.Quantity)
	}
	return total
}

// IsOpen reports whether the cart panel is open.
func (c *CartStore) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SetOpen toggles the cart panel.
func (c *CartStore) SetOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *CartStore) persistLocked() {
	lines := c.lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	if err := localstore.SetJSON(c.local, localstore.KeyCart, lines); err != nil {
		c.logger.Warn("cart persist failed", zap.Error(err))
	}
}
