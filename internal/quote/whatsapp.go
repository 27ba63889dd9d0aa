// Package quote builds WhatsApp deep links that stand in for a checkout:
// the cart contents are rendered into a pre-filled chat message.
package quote

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/varmina-joyas/store/internal/domain"
	"github.com/varmina-joyas/store/internal/format"
)

const waBaseURL = "https://wa.me/"

const (
	defaultCartHeader      = "¡Hola {{brand_name}}! Quisiera cotizar las siguientes piezas:"
	defaultCartFooter      = "Total: {{total_price}}"
	defaultProductTemplate = "¡Hola {{brand_name}}! Me interesa *{{product_name}}* (ref {{product_id}})."
)

// ErrNoWhatsappNumber indicates the brand settings carry no usable number.
var ErrNoWhatsappNumber = errors.New("quote: whatsapp number is not configured")

// ErrEmptyCart indicates a quote was requested for an empty cart.
var ErrEmptyCart = errors.New("quote: cart is empty")

// Item is one cart line resolved against the live catalog.
type Item struct {
	Product     domain.Product
	VariantName string
	Quantity    int
}

// CartRequest carries everything needed to build a cart quote link.
type CartRequest struct {
	Settings domain.BrandSettings
	Items    []Item
	Currency domain.Currency
}

// BuildCartQuoteLink renders the cart into a wa.me deep link. Each line shows
// the piece, variant, quantity, live price, and a short id reference; the
// header and footer come from the configured template or built-in defaults.
func BuildCartQuoteLink(req CartRequest) (string, error) {
	number := digitsOnly(req.Settings.WhatsappNumber)
	if number == "" {
		return "", ErrNoWhatsappNumber
	}
	if len(req.Items) == 0 {
		return "", ErrEmptyCart
	}

	rate := req.Settings.USDExchangeRate
	var total int64
	lines := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			continue
		}
		linePrice := item.Product.EffectivePrice(item.VariantName) * int64(item.Quantity)
		total += linePrice

		label := item.Product.Name
		if item.VariantName != "" {
			label = fmt.Sprintf("%s [%s]", label, item.VariantName)
		}
		lines = append(lines, fmt.Sprintf("💎 *%s* (x%d) %s [ref: %s]",
			label, item.Quantity, format.Price(linePrice, req.Currency, rate), shortRef(item.Product.ID)))
	}
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}

	header := defaultCartHeader
	footer := defaultCartFooter
	if t := strings.TrimSpace(req.Settings.WhatsappTemplate); t != "" {
		header = t
	}

	replacer := newReplacer(req.Settings, format.Price(total, req.Currency, rate), req.Items[0].Product)
	message := replacer.Replace(header) + "\n\n" +
		strings.Join(lines, "\n") + "\n\n" +
		replacer.Replace(footer)

	return waBaseURL + number + "?text=" + url.QueryEscape(message), nil
}

// BuildProductQuoteLink renders a single-piece inquiry link, used by the
// storefront's per-product consult action.
func BuildProductQuoteLink(settings domain.BrandSettings, product domain.Product) (string, error) {
	number := digitsOnly(settings.WhatsappNumber)
	if number == "" {
		return "", ErrNoWhatsappNumber
	}

	template := strings.TrimSpace(settings.WhatsappTemplate)
	if template == "" {
		template = defaultProductTemplate
	}
	replacer := newReplacer(settings, format.CLP(product.Price), product)
	return waBaseURL + number + "?text=" + url.QueryEscape(replacer.Replace(template)), nil
}

func newReplacer(settings domain.BrandSettings, totalPrice string, product domain.Product) *strings.Replacer {
	brand := settings.BrandName
	if brand == "" {
		brand = "Varmina Joyas"
	}
	return strings.NewReplacer(
		"{{brand_name}}", brand,
		"{{total_price}}", totalPrice,
		"{{product_name}}", product.Name,
		"{{product_id}}", shortRef(product.ID),
	)
}

// shortRef keeps quote messages readable: the first 8 characters of the id
// are enough to look a piece up in the admin view.
func shortRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func digitsOnly(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
