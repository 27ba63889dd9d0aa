package domain

import "time"

// ProductStatus enumerates the lifecycle states a catalog piece can be in.
// The values match the Spanish labels stored in the backend records.
type ProductStatus string

const (
	StatusInStock     ProductStatus = "Disponible"
	StatusMadeToOrder ProductStatus = "Por Encargo"
	StatusSoldOut     ProductStatus = "Agotado"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusInStock, StatusMadeToOrder, StatusSoldOut:
		return true
	}
	return false
}

// Currency identifies a display currency for prices.
type Currency string

const (
	CurrencyCLP Currency = "CLP"
	CurrencyUSD Currency = "USD"
)

// Variant is a priced sub-option of a product (e.g. a metal finish).
// At most one variant per product carries IsPrimary.
type Variant struct {
	ID        string
	Name      string
	Price     int64
	Images    []string
	Stock     *int
	IsPrimary bool
}

// Product is an immutable catalog value fetched from the product service.
// Price is expressed in the smallest currency unit (CLP has no cents).
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Images      []string
	Status      ProductStatus
	Collection  string
	Category    string
	Badge       string
	Variants    []Variant

	// Operational metadata edited inline from the admin operations view.
	UnitCost    int64
	Location    string
	ErpCategory string

	WhatsappClicks int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Variant returns the named variant, or nil when the product has no such variant.
func (p Product) Variant(name string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Name == name {
			return &p.Variants[i]
		}
	}
	return nil
}

// PrimaryVariant returns the variant flagged as the default display selection.
func (p Product) PrimaryVariant() *Variant {
	for i := range p.Variants {
		if p.Variants[i].IsPrimary {
			return &p.Variants[i]
		}
	}
	return nil
}

// EffectivePrice resolves the price for the given variant name, falling back
// to the product price when the variant is unknown or carries no override.
func (p Product) EffectivePrice(variantName string) int64 {
	if variantName == "" {
		return p.Price
	}
	if v := p.Variant(variantName); v != nil && v.Price > 0 {
		return v.Price
	}
	return p.Price
}

// CartLine is a shopping-cart entry referencing a product by identifier.
// The product must be re-resolved against the current catalog before display;
// lines never snapshot prices.
type CartLine struct {
	ProductID   string `json:"productId"`
	VariantName string `json:"variantName,omitempty"`
	Quantity    int    `json:"quantity"`
}

// BrandSettings is the singleton record controlling storefront presentation
// and the WhatsApp quote flow.
type BrandSettings struct {
	BrandName          string
	WhatsappNumber     string
	WhatsappTemplate   string
	USDExchangeRate    int64
	AnnouncementText   string
	AnnouncementColor  string
	InstagramURL       string
	LogoURL            string
	HeroImageURL       string
	HeroImageMobileURL string
	UpdatedAt          time.Time
}

// ToastLevel classifies a transient notification.
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
	ToastInfo    ToastLevel = "info"
)

// Toast is a transient, auto-expiring notification consumed by a renderer.
type Toast struct {
	ID      string
	Level   ToastLevel
	Message string
}
