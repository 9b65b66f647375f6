package options

import (
	"fmt"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

type Selection struct {
	OptionID OptionID
	Quantity int
}

type Stay struct {
	Adults   int
	Children int
	Nights   int
}

// Guests counted for PER_PERSON pricing. Infants and pets are not billed.
func (s Stay) Guests() int {
	return s.Adults + s.Children
}

type Line struct {
	OptionID  OptionID
	Name      string
	Category  string
	Quantity  int
	UnitPrice money.Money
	Total     money.Money
	Mandatory bool
}

// Price computes a single option line after checking its constraints.
func Price(opt BookingOption, quantity int, stay Stay) (Line, error) {
	if err := checkConstraints(opt, quantity, stay); err != nil {
		return Line{}, err
	}
	unit := opt.PricePerUnit
	if opt.PricingType == PerPerson {
		unit = unit.Multiply(int64(stay.Guests()))
	}
	total := unit.Multiply(int64(quantity))
	if opt.PricingPeriod == PerDay {
		total = total.Multiply(int64(stay.Nights))
	}
	total = total.NonNegative().Round()
	return Line{
		OptionID:  opt.ID,
		Name:      opt.Name,
		Category:  opt.Category,
		Quantity:  quantity,
		UnitPrice: unit.Round(),
		Total:     total,
		Mandatory: opt.IsMandatory,
	}, nil
}

// PriceAll prices every selection against the offered options. Selections must
// already include mandatory options; see MergeMandatory.
func PriceAll(offered []BookingOption, selections []Selection, stay Stay, currency string) ([]Line, money.Money, error) {
	index := make(map[OptionID]BookingOption, len(offered))
	for _, opt := range offered {
		index[opt.ID] = opt
	}
	total := money.Zero(currency)
	lines := make([]Line, 0, len(selections))
	for _, sel := range selections {
		opt, ok := index[sel.OptionID]
		if !ok || !opt.IsActive {
			return nil, money.Money{}, fmt.Errorf("%w: %s", ErrOptionNotFound, sel.OptionID)
		}
		line, err := Price(opt, sel.Quantity, stay)
		if err != nil {
			return nil, money.Money{}, err
		}
		total, err = total.Add(line.Total)
		if err != nil {
			return nil, money.Money{}, err
		}
		lines = append(lines, line)
	}
	return lines, total, nil
}

// MergeMandatory returns the selections with every active mandatory option
// added at its minimum quantity when the caller did not pick it. Duplicate
// selections of the same option are summed.
func MergeMandatory(offered []BookingOption, selections []Selection) []Selection {
	merged := make([]Selection, 0, len(selections)+len(offered))
	positions := make(map[OptionID]int, len(selections))
	for _, sel := range selections {
		if idx, ok := positions[sel.OptionID]; ok {
			merged[idx].Quantity += sel.Quantity
			continue
		}
		positions[sel.OptionID] = len(merged)
		merged = append(merged, sel)
	}
	for _, opt := range offered {
		if !opt.IsMandatory || !opt.IsActive {
			continue
		}
		if _, ok := positions[opt.ID]; ok {
			continue
		}
		qty := opt.MinQuantity
		if qty < 1 {
			qty = 1
		}
		positions[opt.ID] = len(merged)
		merged = append(merged, Selection{OptionID: opt.ID, Quantity: qty})
	}
	return merged
}

func checkConstraints(opt BookingOption, quantity int, stay Stay) error {
	minQty := opt.MinQuantity
	if minQty < 1 {
		minQty = 1
	}
	if quantity < minQty {
		return &ConstraintError{OptionID: opt.ID, Constraint: "min_quantity", Limit: minQty, Actual: quantity}
	}
	if opt.MaxQuantity != nil && quantity > *opt.MaxQuantity {
		return &ConstraintError{OptionID: opt.ID, Constraint: "max_quantity", Limit: *opt.MaxQuantity, Actual: quantity}
	}
	guests := stay.Guests()
	if opt.MinGuests != nil && guests < *opt.MinGuests {
		return &ConstraintError{OptionID: opt.ID, Constraint: "min_guests", Limit: *opt.MinGuests, Actual: guests}
	}
	if opt.MaxGuests != nil && guests > *opt.MaxGuests {
		return &ConstraintError{OptionID: opt.ID, Constraint: "max_guests", Limit: *opt.MaxGuests, Actual: guests}
	}
	if opt.MinNights != nil && stay.Nights < *opt.MinNights {
		return &ConstraintError{OptionID: opt.ID, Constraint: "min_nights", Limit: *opt.MinNights, Actual: stay.Nights}
	}
	return nil
}
