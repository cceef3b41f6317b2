// Package settings exposes the read-only business thresholds the wallet,
// order and commission services consult.
package settings

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
)

// Provider answers rate and threshold lookups. It is immutable once built.
type Provider struct {
	rates       map[enums.UserTier]decimal.Decimal
	defaultRate decimal.Decimal
	minTopUp    decimal.Decimal
	expiryDays  int
}

// Values is the raw input for a Provider, used directly by tests.
type Values struct {
	Rates       map[enums.UserTier]decimal.Decimal
	DefaultRate decimal.Decimal
	MinTopUp    decimal.Decimal
	ExpiryDays  int
}

// NewProvider builds a provider from the loaded service configuration.
func NewProvider(commission config.CommissionConfig, wallet config.WalletConfig) (*Provider, error) {
	rates, err := ParseRates(commission.Rates)
	if err != nil {
		return nil, err
	}
	return New(Values{
		Rates:       rates,
		DefaultRate: commission.DefaultRate,
		MinTopUp:    wallet.MinTopUp,
		ExpiryDays:  commission.ExpiryDays,
	})
}

// New validates and freezes the given values.
func New(v Values) (*Provider, error) {
	if v.DefaultRate.IsNegative() {
		return nil, fmt.Errorf("default commission rate must not be negative")
	}
	if v.MinTopUp.IsNegative() {
		return nil, fmt.Errorf("minimum top-up must not be negative")
	}
	if v.ExpiryDays <= 0 {
		return nil, fmt.Errorf("commission expiry days must be positive")
	}
	rates := make(map[enums.UserTier]decimal.Decimal, len(v.Rates))
	for tier, rate := range v.Rates {
		if !tier.IsValid() {
			return nil, fmt.Errorf("unknown tier %q in rate table", tier)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("rate for %s must be within [0, 1]", tier)
		}
		rates[tier] = rate
	}
	return &Provider{
		rates:       rates,
		defaultRate: v.DefaultRate,
		minTopUp:    v.MinTopUp,
		expiryDays:  v.ExpiryDays,
	}, nil
}

// ParseRates reads "tier=rate" pairs separated by commas.
func ParseRates(raw string) (map[enums.UserTier]decimal.Decimal, error) {
	rates := map[enums.UserTier]decimal.Decimal{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("rate entry %q must look like tier=rate", pair)
		}
		tier, err := enums.ParseUserTier(strings.TrimSpace(key))
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", tier, err)
		}
		if _, dup := rates[tier]; dup {
			return nil, fmt.Errorf("duplicate rate for %s", tier)
		}
		rates[tier] = rate
	}
	return rates, nil
}

// CommissionRate returns the tier's rate, or the default for tiers without one.
func (p *Provider) CommissionRate(tier enums.UserTier) decimal.Decimal {
	if rate, ok := p.rates[tier]; ok {
		return rate
	}
	return p.defaultRate
}

// MinTopUp is the smallest amount a top-up request may ask for.
func (p *Provider) MinTopUp() decimal.Decimal {
	return p.minTopUp
}

// CommissionExpiryDays is how long a monthly record may stay pending past its period end.
func (p *Provider) CommissionExpiryDays() int {
	return p.expiryDays
}
