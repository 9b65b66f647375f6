package mongo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

// Amounts are stored as decimal strings so no precision is lost to doubles.
type moneyDocument struct {
	Amount   string `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount.String(), Currency: m.Currency}
}

func (d moneyDocument) toMoney() (money.Money, error) {
	if d.Amount == "" {
		return money.Zero(d.Currency), nil
	}
	return money.FromString(d.Amount, d.Currency)
}

func newOptionalMoney(m *money.Money) *moneyDocument {
	if m == nil {
		return nil
	}
	doc := newMoneyDocument(*m)
	return &doc
}

func (d *moneyDocument) toOptional() (*money.Money, error) {
	if d == nil {
		return nil, nil
	}
	m, err := d.toMoney()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func decimalString(d decimal.Decimal) string { return d.String() }

func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func optionalDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseOptionalDecimal(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Day ranges are kept as unix milliseconds so range queries compare integers.
type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newRangeDocument(dr daterange.DateRange) rangeDocument {
	return rangeDocument{CheckIn: dr.CheckIn.UnixMilli(), CheckOut: dr.CheckOut.UnixMilli()}
}

func (d rangeDocument) toRange() daterange.DateRange {
	return daterange.DateRange{CheckIn: timestampToTime(d.CheckIn), CheckOut: timestampToTime(d.CheckOut)}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func timeToTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func optionalTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return timestampToTime(ms)
}
