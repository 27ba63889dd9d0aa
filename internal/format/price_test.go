package format

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/varmina-joyas/store/internal/domain"
)

func TestCLPUsesChileanGrouping(t *testing.T) {
	t.Parallel()

	cases := map[int64]string{
		0:       "$0",
		950:     "$950",
		45000:   "$45.000",
		1250000: "$1.250.000",
	}
	for amount, want := range cases {
		require.Equal(t, want, CLP(amount), "CLP(%d)", amount)
	}
}

func TestConvertToUSDRoundsUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name            string
		clp, rate, want int64
	}{
		{"rounds partial dollars up", 45000, 950, 48},
		{"exact multiple", 950, 950, 1},
		{"one peso over", 951, 950, 2},
		{"zero amount", 0, 950, 0},
		{"negative amount", -100, 950, 0},
		{"zero rate falls back to default", 45000, 0, 48},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ConvertToUSD(tc.clp, tc.rate))
		})
	}
}

func TestPriceSwitchesCurrency(t *testing.T) {
	t.Parallel()

	require.Equal(t, "$45.000", Price(45000, domain.CurrencyCLP, 950))
	require.Equal(t, "US$48", Price(45000, domain.CurrencyUSD, 950))
	require.Equal(t, "US$1,316", Price(1250000, domain.CurrencyUSD, 950))
}
