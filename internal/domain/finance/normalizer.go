// Package finance converts billing and cost figures into one annual INR unit
// so assignments can be compared and profit derived.
package finance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

// Currency of a billing figure
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

// ParseCurrency accepts currency codes case-insensitively
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case CurrencyINR, CurrencyUSD:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", entity.ErrUnsupportedCurrency, s)
}

// BillingType is the cadence a billing figure is expressed in
type BillingType string

const (
	BillingMonthly BillingType = "Monthly"
	BillingHourly  BillingType = "Hourly"
	BillingLPA     BillingType = "LPA"
)

// ParseBillingType accepts cadences case-insensitively. Unknown values map to LPA.
func ParseBillingType(s string) BillingType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly":
		return BillingMonthly
	case "hourly":
		return BillingHourly
	default:
		return BillingLPA
	}
}

// Default conversion constants
const (
	DefaultFXRateUSDToINR = 84
	DefaultHoursPerDay    = 8
	DefaultDaysPerMonth   = 22
	monthsPerYear         = 12
)

// HourlyConvention fixes how an hourly rate annualizes
type HourlyConvention struct {
	HoursPerDay  int
	DaysPerMonth int
}

// DefaultHourlyConvention is 8 hours x 22 days x 12 months = 2112 hours
var DefaultHourlyConvention = HourlyConvention{HoursPerDay: DefaultHoursPerDay, DaysPerMonth: DefaultDaysPerMonth}

// AnnualHours returns the billable hours in a year under this convention
func (c HourlyConvention) AnnualHours() int64 {
	return int64(c.HoursPerDay) * int64(c.DaysPerMonth) * monthsPerYear
}

// NormalizeToAnnual converts amount to an annual INR figure. A nil amount counts as zero.
func NormalizeToAnnual(amount *decimal.Decimal, currency Currency, billingType BillingType, fxRateUSDToINR decimal.Decimal, convention HourlyConvention) (decimal.Decimal, error) {
	value := decimal.Zero
	if amount != nil {
		value = *amount
	}

	switch currency {
	case CurrencyINR:
	case CurrencyUSD:
		value = value.Mul(fxRateUSDToINR)
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", entity.ErrUnsupportedCurrency, currency)
	}

	switch billingType {
	case BillingMonthly:
		value = value.Mul(decimal.NewFromInt(monthsPerYear))
	case BillingHourly:
		value = value.Mul(decimal.NewFromInt(convention.AnnualHours()))
	default:
		// LPA and unrecognised cadences are already annual
	}
	return value, nil
}

// ComputeProfit subtracts the annual cost from the annual billing
func ComputeProfit(billingAnnual, salaryAnnual decimal.Decimal) decimal.Decimal {
	return billingAnnual.Sub(salaryAnnual)
}

// AnnualFigures is the revenue and profit of one assignment in annual INR
type AnnualFigures struct {
	RevenueAnnual decimal.Decimal `json:"revenueAnnual"`
	ProfitAnnual  decimal.Decimal `json:"profitAnnual"`
}

// Normalizer carries the configured conversion constants
type Normalizer struct {
	fxRate     decimal.Decimal
	convention HourlyConvention
}

// NewNormalizer creates a normalizer. Non-positive inputs fall back to the defaults.
func NewNormalizer(fxRateUSDToINR decimal.Decimal, convention HourlyConvention) *Normalizer {
	if !fxRateUSDToINR.IsPositive() {
		fxRateUSDToINR = decimal.NewFromInt(DefaultFXRateUSDToINR)
	}
	if convention.HoursPerDay <= 0 || convention.DaysPerMonth <= 0 {
		convention = DefaultHourlyConvention
	}
	return &Normalizer{fxRate: fxRateUSDToINR, convention: convention}
}

// FXRate returns the configured USD to INR rate
func (n *Normalizer) FXRate() decimal.Decimal {
	return n.fxRate
}

// Convention returns the configured hourly convention
func (n *Normalizer) Convention() HourlyConvention {
	return n.convention
}

// NormalizeToAnnual converts amount using the configured constants
func (n *Normalizer) NormalizeToAnnual(amount *decimal.Decimal, currency Currency, billingType BillingType) (decimal.Decimal, error) {
	return NormalizeToAnnual(amount, currency, billingType, n.fxRate, n.convention)
}

// ComputeAnnualFigures normalizes the billing amount and derives profit against
// salaryAnnual, which is already in annual INR
func (n *Normalizer) ComputeAnnualFigures(billingAmount *decimal.Decimal, currency Currency, billingType BillingType, salaryAnnual *decimal.Decimal) (AnnualFigures, error) {
	revenue, err := n.NormalizeToAnnual(billingAmount, currency, billingType)
	if err != nil {
		return AnnualFigures{}, err
	}
	salary := decimal.Zero
	if salaryAnnual != nil {
		salary = *salaryAnnual
	}
	return AnnualFigures{
		RevenueAnnual: revenue,
		ProfitAnnual:  ComputeProfit(revenue, salary),
	}, nil
}
