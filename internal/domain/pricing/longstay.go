package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

// LongStayRule grants Percent off the accommodation subtotal for stays of at least MinNights.
type LongStayRule struct {
	MinNights int
	Percent   decimal.Decimal
}

type LongStayResult struct {
	RequiredNights int
	Discount       money.Money
	Rule           *LongStayRule
}

// RequiredMinNights is the most restrictive minimum across every touched night.
func RequiredMinNights(rates []Rate) int {
	required := 1
	for _, rate := range rates {
		if rate.MinNights > required {
			required = rate.MinNights
		}
	}
	return required
}

// AdjustLongStay enforces minimum nights and applies the best matching long-stay rule.
// With no rules configured it only enforces the minimum.
func AdjustLongStay(rates []Rate, subtotal money.Money, rules []LongStayRule) (LongStayResult, error) {
	nights := len(rates)
	required := RequiredMinNights(rates)
	if nights < required {
		return LongStayResult{}, &StayTooShortError{Required: required, Actual: nights}
	}
	result := LongStayResult{RequiredNights: required, Discount: money.Zero(subtotal.Currency)}

	var best *LongStayRule
	for i := range rules {
		rule := rules[i]
		if rule.MinNights <= 0 || nights < rule.MinNights || !rule.Percent.IsPositive() {
			continue
		}
		if best == nil || rule.MinNights > best.MinNights {
			best = &rule
		}
	}
	if best == nil {
		return result, nil
	}
	percent := best.Percent
	if percent.GreaterThan(decimal.NewFromInt(100)) {
		percent = decimal.NewFromInt(100)
	}
	result.Rule = best
	result.Discount = subtotal.Percent(percent).Round()
	return result, nil
}
