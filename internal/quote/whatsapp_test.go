package quote

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/varmina-joyas/store/internal/domain"
)

func testSettings() domain.BrandSettings {
	return domain.BrandSettings{
		BrandName:       "Varmina Joyas",
		WhatsappNumber:  "+56 9 0000 0000",
		USDExchangeRate: 950,
	}
}

func testProduct() domain.Product {
	return domain.Product{
		ID:    "01J0WXYZABCDEF",
		Name:  "Anillo Aurora",
		Price: 45000,
		Variants: []domain.Variant{
			{ID: "v1", Name: "Oro", Price: 60000, IsPrimary: true},
		},
	}
}

func decodeText(t *testing.T, link string) string {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err, "link must parse: %q", link)
	return parsed.Query().Get("text")
}

func TestBuildCartQuoteLink(t *testing.T) {
	t.Parallel()

	link, err := BuildCartQuoteLink(CartRequest{
		Settings: testSettings(),
		Items: []Item{
			{Product: testProduct(), VariantName: "Oro", Quantity: 2},
			{Product: domain.Product{ID: "01J1AAAA", Name: "Collar Luna", Price: 30000}, Quantity: 1},
		},
		Currency: domain.CurrencyCLP,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://wa.me/56900000000?text="), "unexpected prefix: %q", link)

	text := decodeText(t, link)
	require.Contains(t, text, "¡Hola Varmina Joyas!")
	require.Contains(t, text, "💎 *Anillo Aurora [Oro]* (x2) $120.000 [ref: 01J0WXYZ]")
	require.Contains(t, text, "💎 *Collar Luna* (x1) $30.000 [ref: 01J1AAAA]")
	require.Contains(t, text, "Total: $150.000")
}

func TestBuildCartQuoteLinkInUSD(t *testing.T) {
	t.Parallel()

	link, err := BuildCartQuoteLink(CartRequest{
		Settings: testSettings(),
		Items:    []Item{{Product: testProduct(), Quantity: 1}},
		Currency: domain.CurrencyUSD,
	})
	require.NoError(t, err)
	require.Contains(t, decodeText(t, link), "Total: US$48")
}

func TestBuildCartQuoteLinkUsesConfiguredTemplate(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.WhatsappTemplate = "Pedido para {{brand_name}} por {{total_price}}"

	link, err := BuildCartQuoteLink(CartRequest{
		Settings: settings,
		Items:    []Item{{Product: testProduct(), Quantity: 1}},
		Currency: domain.CurrencyCLP,
	})
	require.NoError(t, err)
	require.Contains(t, decodeText(t, link), "Pedido para Varmina Joyas por $45.000")
}

func TestBuildCartQuoteLinkErrors(t *testing.T) {
	t.Parallel()

	_, err := BuildCartQuoteLink(CartRequest{
		Settings: domain.BrandSettings{WhatsappNumber: "sin numero"},
		Items:    []Item{{Product: testProduct(), Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrNoWhatsappNumber)

	_, err = BuildCartQuoteLink(CartRequest{Settings: testSettings()})
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = BuildCartQuoteLink(CartRequest{
		Settings: testSettings(),
		Items:    []Item{{Product: testProduct(), Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrEmptyCart, "zero-quantity lines leave nothing to quote")
}

func TestBuildProductQuoteLink(t *testing.T) {
	t.Parallel()

	link, err := BuildProductQuoteLink(testSettings(), testProduct())
	require.NoError(t, err)

	text := decodeText(t, link)
	require.Contains(t, text, "*Anillo Aurora*")
	require.Contains(t, text, "01J0WXYZ")
}
