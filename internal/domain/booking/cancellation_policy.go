package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

// CancellationPolicySnapshot is copied onto the booking when it is requested
// so later policy edits do not change refunds.
type CancellationPolicySnapshot struct {
	PolicyID                  string
	FreeCancellationUntil     time.Time
	PreCheckInPenaltyPercent  int
	PostCheckInPenaltyPercent int
}

// SnapshotPolicy fixes the listing's terms to the dates of one stay.
func SnapshotPolicy(p property.CancellationPolicy, checkIn time.Time) CancellationPolicySnapshot {
	return CancellationPolicySnapshot{
		PolicyID:                  p.PolicyID,
		FreeCancellationUntil:     p.FreeUntil(checkIn),
		PreCheckInPenaltyPercent:  p.PreCheckInPenaltyPercent,
		PostCheckInPenaltyPercent: p.PostCheckInPenaltyPercent,
	}
}

func (c CancellationPolicySnapshot) CalculateRefund(paid money.Money, cancelAt, checkIn time.Time) (refund money.Money, penalty money.Money, err error) {
	if cancelAt.IsZero() {
		cancelAt = time.Now().UTC()
	}
	percent := 0
	switch {
	case c.PolicyID == "":
	case cancelAt.Before(checkIn):
		if c.FreeCancellationUntil.IsZero() || !cancelAt.Before(c.FreeCancellationUntil) {
			percent = clampPercent(c.PreCheckInPenaltyPercent)
		}
	default:
		percent = clampPercent(c.PostCheckInPenaltyPercent)
	}
	penalty = paid.Percent(decimal.NewFromInt(int64(percent))).Round()
	refund, err = paid.Sub(penalty)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return refund, penalty, nil
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
