// Package mortgage provides the mortgage math used for lead scoring:
// annuity payment and the ČNB affordability ratios.
package mortgage

import (
	"math"
	"os"
	"strconv"
)

// Default assumptions for clients who have not told us their rate or term.
// These follow the 2026 market average and can be overridden via environment variables.
var (
	// DefaultRatePct is the assumed annual fixed rate in percent.
	DefaultRatePct = getEnvFloat("MORTGAGE_DEFAULT_RATE_PCT", 4.89)

	// DefaultTermYears is the assumed loan term.
	DefaultTermYears = getEnvInt("MORTGAGE_DEFAULT_TERM_YEARS", 30)
)

// Sane price range for residential property in CZK.
const (
	MinSanePrice = 500_000
	MaxSanePrice = 50_000_000
)

// Assumptions are the loan parameters used when the profile lacks them.
type Assumptions struct {
	RatePct   float64
	TermYears int
}

func DefaultAssumptions() Assumptions {
	return Assumptions{RatePct: DefaultRatePct, TermYears: DefaultTermYears}
}

// MonthlyPayment returns the annuity payment for principal at annualRatePct
// over years. A zero rate repays linearly.
func MonthlyPayment(principal, annualRatePct float64, years int) float64 {
	if principal <= 0 || years <= 0 {
		return 0
	}
	n := float64(years * 12)
	r := annualRatePct / 100 / 12
	if r == 0 {
		return principal / n
	}
	return principal * r / (1 - math.Pow(1+r, -n))
}

// LTV is loan-to-value: (price - equity) / price.
func LTV(price, equity float64) (float64, bool) {
	if price <= 0 {
		return 0, false
	}
	loan := price - equity
	if loan < 0 {
		loan = 0
	}
	return loan / price, true
}

// DSTI is debt service to income: all monthly debt payments over net
// monthly income.
func DSTI(monthlyPayment, otherPayments, monthlyIncome float64) (float64, bool) {
	if monthlyIncome <= 0 {
		return 0, false
	}
	return (monthlyPayment + otherPayments) / monthlyIncome, true
}

// DTI is total debt over annual net income.
func DTI(totalDebt, monthlyIncome float64) (float64, bool) {
	if monthlyIncome <= 0 {
		return 0, false
	}
	return totalDebt / (monthlyIncome * 12), true
}

// getEnvFloat returns an environment variable as float64, or the default if not set.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvInt returns an environment variable as int, or the default if not set.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
