// Package format renders prices for the storefront. CLP amounts are integer
// pesos formatted with Chilean digit grouping; USD amounts are whole dollars
// converted from CLP at the configured exchange rate.
package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/varmina-joyas/store/internal/domain"
)

// DefaultUSDExchangeRate is the CLP-per-USD fallback when settings carry none.
const DefaultUSDExchangeRate = 950

var (
	clpPrinter = message.NewPrinter(language.MustParse("es-CL"))
	usdPrinter = message.NewPrinter(language.AmericanEnglish)
)

// CLP formats an amount of Chilean pesos, e.g. 45000 -> "$45.000".
func CLP(amount int64) string {
	return clpPrinter.Sprintf("$%d", amount)
}

// USD formats an amount of whole US dollars, e.g. 1250 -> "US$1,250".
func USD(amount int64) string {
	return usdPrinter.Sprintf("US$%d", amount)
}

// ConvertToUSD converts a CLP amount to whole dollars, rounding up so a quote
// never understates the price. Non-positive rates fall back to the default.
func ConvertToUSD(clp, rate int64) int64 {
	if rate <= 0 {
		rate = DefaultUSDExchangeRate
	}
	if clp <= 0 {
		return 0
	}
	return (clp + rate - 1) / rate
}

// Price formats a CLP amount in the requested display currency.
func Price(clp int64, currency domain.Currency, rate int64) string {
	if currency == domain.CurrencyUSD {
		return USD(ConvertToUSD(clp, rate))
	}
	return CLP(clp)
}
