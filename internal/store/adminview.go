package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/varmina-joyas/store/internal/domain"
	"github.com/varmina-joyas/store/internal/services"
)

// AdminTab identifies a pane of the admin surface.
type AdminTab string

const (
	TabInventory AdminTab = "inventory"
	TabAnalytics AdminTab = "analytics"
	TabSettings  AdminTab = "settings"
)

// RowEdit holds the in-progress inline edit of a product's operational fields.
type RowEdit struct {
	ProductID   string
	UnitCost    int64
	Location    string
	ErpCategory string
}

// AdminControllerDeps wires dependencies for the admin view controller.
type AdminControllerDeps struct {
	Catalog  *CatalogStore
	Products services.ProductService
	Notifier *Notifier
	Logger   *zap.Logger
}

// AdminController drives the admin inventory view: tab switching, the bulk
// selection set, and inline operational edits. Bulk mutations force a catalog
// refresh afterwards so the view reflects the backend, not the optimism.
type AdminController struct {
	catalog  *CatalogStore
	products services.ProductService
	notifier *Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	tab      AdminTab
	selected map[string]struct{}
	rowEdit  *RowEdit
}

// NewAdminController constructs an AdminController on the inventory tab.
func NewAdminController(deps AdminControllerDeps) (*AdminController, error) {
	if deps.Catalog == nil {
		return nil, errors.New("admin controller: catalog store is required")
	}
	if deps.Products == nil {
		return nil, errors.New("admin controller: product service is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("admin controller: notifier is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AdminController{
		catalog:  deps.Catalog,
		products: deps.Products,
		notifier: deps.Notifier,
		logger:   logger,
		tab:      TabInventory,
		selected: make(map[string]struct{}),
	}, nil
}

// ActiveTab returns the active admin tab.
func (c *AdminController) ActiveTab() AdminTab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

// SetActiveTab switches panes. Switching away from inventory drops the
// selection and any in-progress row edit.
func (c *AdminController) SetActiveTab(tab AdminTab) {
	switch tab {
	case TabInventory, TabAnalytics, TabSettings:
	default:
		return
	}
	c.mu.Lock()
	if tab != c.tab && tab != TabInventory {
		c.selected = make(map[string]struct{})
		c.rowEdit = nil
	}
	c.tab = tab
	c.mu.Unlock()
}

// ToggleSelect flips a product in or out of the bulk selection.
func (c *AdminController) ToggleSelect(productID string) {
	if productID == "" {
		return
	}
	c.mu.Lock()
	if _, ok := c.selected[productID]; ok {
		delete(c.selected, productID)
	} else {
		c.selected[productID] = struct{}{}
	}
	c.mu.Unlock()
}

// SelectAll selects every product in the current catalog snapshot.
func (c *AdminController) SelectAll() {
	products := c.catalog.Products()
	c.mu.Lock()
	for _, p := range products {
		c.selected[p.ID] = struct{}{}
	}
	c.mu.Unlock()
}

// ClearSelection empties the bulk selection.
func (c *AdminController) ClearSelection() {
	c.mu.Lock()
	c.selected = make(map[string]struct{})
	c.mu.Unlock()
}

// IsSelected reports whether a product is in the selection.
func (c *AdminController) IsSelected(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.selected[productID]
	return ok
}

// Selected returns the selected product ids in a stable order.
func (c *AdminController) Selected() []string {
	c.mu.Lock()
	ids := make([]string, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// BulkUpdateStatus applies a status to every selected product, then forces a
// silent catalog refresh and clears the selection. On failure the selection
// survives so the operator can retry.
func (c *AdminController) BulkUpdateStatus(ctx context.Context, status domain.ProductStatus) error {
	ids := c.Selected()
	if len(ids) == 0 {
		return nil
	}

	if err := c.products.UpdateStatusBulk(ctx, ids, status); err != nil {
		c.logger.Warn("bulk status update failed", zap.Int("count", len(ids)), zap.Error(err))
		c.notifier.Error("No se pudo actualizar el estado")
		return err
	}

	c.ClearSelection()
	if err := c.catalog.Refresh(ctx, RefreshOptions{Force: true, Silent: true}); err != nil {
		c.logger.Warn("post-bulk refresh failed", zap.Error(err))
	}
	c.notifier.Success("Estado actualizado")
	return nil
}

// BulkDelete removes every selected product, then forces a silent catalog
// refresh and clears the selection. On failure the selection survives.
func (c *AdminController) BulkDelete(ctx context.Context) error {
	ids := c.Selected()
	if len(ids) == 0 {
		return nil
	}

	if err := c.products.DeleteProductsBulk(ctx, ids); err != nil {
		c.logger.Warn("bulk delete failed", zap.Int("count", len(ids)), zap.Error(err))
		c.notifier.Error("No se pudieron eliminar los productos")
		return err
	}

	c.ClearSelection()
	if err := c.catalog.Refresh(ctx, RefreshOptions{Force: true, Silent: true}); err != nil {
		c.logger.Warn("post-bulk refresh failed", zap.Error(err))
	}
	c.notifier.Success("Productos eliminados")
	return nil
}

// StartRowEdit begins an inline edit of a product's operational fields,
// seeding the draft from the current snapshot. Starting a new edit replaces
// any previous draft.
func (c *AdminController) StartRowEdit(productID string) bool {
	product, ok := c.catalog.ProductByID(productID)
	if !ok {
		return false
	}
	c.mu.Lock()
	c.rowEdit = &RowEdit{
		ProductID:   product.ID,
		UnitCost:    product.UnitCost,
		Location:    product.Location,
		ErpCategory: product.ErpCategory,
	}
	c.mu.Unlock()
	return true
}

// RowEditDraft returns a copy of the in-progress edit, if any.
func (c *AdminController) RowEditDraft() (RowEdit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rowEdit == nil {
		return RowEdit{}, false
	}
	return *c.rowEdit, true
}

// UpdateRowEdit replaces the draft fields. The edit must target the same
// product the draft was started for.
func (c *AdminController) UpdateRowEdit(edit RowEdit) {
	c.mu.Lock()
	if c.rowEdit != nil && c.rowEdit.ProductID == edit.ProductID {
		c.rowEdit = &edit
	}
	c.mu.Unlock()
}

// CancelRowEdit discards the draft.
func (c *AdminController) CancelRowEdit() {
	c.mu.Lock()
	c.rowEdit = nil
	c.mu.Unlock()
}

// CommitRowEdit saves the draft. On success the catalog snapshot is patched
// optimistically and the draft cleared; on failure the draft stays so the
// operator's input is not lost.
func (c *AdminController) CommitRowEdit(ctx context.Context) error {
	draft, ok := c.RowEditDraft()
	if !ok {
		return nil
	}

	unitCost := draft.UnitCost
	location := draft.Location
	erpCategory := draft.ErpCategory
	_, err := c.products.UpdateOperational(ctx, services.OperationalEditCommand{
		ProductID:   draft.ProductID,
		UnitCost:    &unitCost,
		Location:    &location,
		ErpCategory: &erpCategory,
	})
	if err != nil {
		c.logger.Warn("operational edit failed", zap.String("product_id", draft.ProductID), zap.Error(err))
		c.notifier.Error("No se pudo guardar la edición")
		return err
	}

	c.catalog.PatchProduct(draft.ProductID, func(p *domain.Product) {
		p.UnitCost = draft.UnitCost
		p.Location = draft.Location
		p.ErpCategory = draft.ErpCategory
	})
	c.CancelRowEdit()
	c.notifier.Success("Cambios guardados")
	return nil
}
