package finance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

var fx84 = decimal.NewFromInt(84)

func TestNormalizeToAnnual(t *testing.T) {
	tests := []struct {
		name        string
		amount      *decimal.Decimal
		currency    Currency
		billingType BillingType
		want        int64
	}{
		{"INR monthly", dec(50000), CurrencyINR, BillingMonthly, 600000},
		{"USD monthly", dec(50000), CurrencyUSD, BillingMonthly, 50400000},
		{"USD monthly 100", dec(100), CurrencyUSD, BillingMonthly, 100 * 84 * 12},
		{"INR hourly", dec(1000), CurrencyINR, BillingHourly, 1000 * 2112},
		{"USD hourly", dec(10), CurrencyUSD, BillingHourly, 10 * 84 * 2112},
		{"INR LPA", dec(1200000), CurrencyINR, BillingLPA, 1200000},
		{"USD LPA", dec(10000), CurrencyUSD, BillingLPA, 840000},
		{"unknown cadence is annual", dec(500), CurrencyINR, BillingType("Weekly"), 500},
		{"nil amount", nil, CurrencyUSD, BillingMonthly, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeToAnnual(tt.amount, tt.currency, tt.billingType, fx84, DefaultHourlyConvention)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(tt.want).Equal(got), "got %s want %d", got, tt.want)
		})
	}
}

func TestNormalizeToAnnual_UnsupportedCurrency(t *testing.T) {
	_, err := NormalizeToAnnual(dec(1), Currency("EUR"), BillingMonthly, fx84, DefaultHourlyConvention)
	assert.True(t, errors.Is(err, entity.ErrUnsupportedCurrency))
}

func TestNormalizeToAnnual_Pure(t *testing.T) {
	amount := decimal.RequireFromString("1234.56")
	first, err := NormalizeToAnnual(&amount, CurrencyUSD, BillingHourly, fx84, DefaultHourlyConvention)
	require.NoError(t, err)
	second, err := NormalizeToAnnual(&amount, CurrencyUSD, BillingHourly, fx84, DefaultHourlyConvention)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, "1234.56", amount.String())
}

func TestHourlyConvention_AnnualHours(t *testing.T) {
	assert.Equal(t, int64(2112), DefaultHourlyConvention.AnnualHours())
	assert.Equal(t, int64(2016), HourlyConvention{HoursPerDay: 8, DaysPerMonth: 21}.AnnualHours())
}

func TestComputeProfit(t *testing.T) {
	cases := []struct{ billing, salary, want string }{
		{"600000", "400000", "200000"},
		{"400000", "600000", "-200000"},
		{"0", "0", "0"},
		{"1000.50", "0.25", "1000.25"},
	}
	for _, c := range cases {
		got := ComputeProfit(decimal.RequireFromString(c.billing), decimal.RequireFromString(c.salary))
		assert.True(t, decimal.RequireFromString(c.want).Equal(got), "%s - %s = %s", c.billing, c.salary, got)
	}
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, CurrencyUSD, c)

	_, err = ParseCurrency("GBP")
	assert.ErrorIs(t, err, entity.ErrUnsupportedCurrency)
}

func TestParseBillingType(t *testing.T) {
	assert.Equal(t, BillingMonthly, ParseBillingType("monthly"))
	assert.Equal(t, BillingHourly, ParseBillingType("Hourly"))
	assert.Equal(t, BillingLPA, ParseBillingType("LPA"))
	assert.Equal(t, BillingLPA, ParseBillingType(""))
	assert.Equal(t, BillingLPA, ParseBillingType("Fortnightly"))
}

func TestNormalizer_ComputeAnnualFigures(t *testing.T) {
	n := NewNormalizer(decimal.Zero, HourlyConvention{})
	assert.True(t, fx84.Equal(n.FXRate()))
	assert.Equal(t, DefaultHourlyConvention, n.Convention())

	figures, err := n.ComputeAnnualFigures(dec(50000), CurrencyINR, BillingMonthly, dec(450000))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(600000).Equal(figures.RevenueAnnual))
	assert.True(t, decimal.NewFromInt(150000).Equal(figures.ProfitAnnual))

	figures, err = n.ComputeAnnualFigures(dec(50000), CurrencyUSD, BillingMonthly, nil)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50400000).Equal(figures.RevenueAnnual))
	assert.True(t, figures.RevenueAnnual.Equal(figures.ProfitAnnual))

	_, err = n.ComputeAnnualFigures(dec(1), Currency("JPY"), BillingLPA, nil)
	assert.ErrorIs(t, err, entity.ErrUnsupportedCurrency)
}
