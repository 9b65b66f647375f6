package payments

import (
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

type DepositResult struct {
	Due     money.Money
	Balance money.Money
	// Capped is set when the configured deposit exceeded the total and was clamped.
	Capped bool
}

// Deposit computes the amount due now. A deposit never exceeds the total.
func Deposit(cfg *PaymentConfiguration, total money.Money) DepositResult {
	if cfg == nil {
		return DepositResult{Due: total, Balance: money.Zero(total.Currency)}
	}
	var due money.Money
	switch cfg.DepositType {
	case DepositFixed:
		due = money.Money{Amount: cfg.DepositValue, Currency: total.Currency}
	default:
		due = total.Percent(cfg.DepositValue).Round()
	}
	res := DepositResult{Due: due.NonNegative()}
	if res.Due.GreaterThan(total) {
		res.Due = total
		res.Capped = true
	}
	res.Balance = money.Money{Amount: total.Amount.Sub(res.Due.Amount), Currency: total.Currency}
	return res
}

// ServiceFee computes the platform fee on the given base.
func ServiceFee(cfg *PaymentConfiguration, base money.Money) money.Money {
	if cfg == nil || !cfg.ServiceFeeEnabled {
		return money.Zero(base.Currency)
	}
	switch cfg.ServiceFeeType {
	case ServiceFeeFixed:
		return money.Money{Amount: cfg.ServiceFeeValue, Currency: base.Currency}
	case ServiceFeePercentage:
		return base.Percent(cfg.ServiceFeeValue).Round()
	default:
		return money.Zero(base.Currency)
	}
}
