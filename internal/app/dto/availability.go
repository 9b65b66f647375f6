package dto

import (
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
)

type ConflictDTO struct {
	Kind   string       `json:"kind"`
	ID     string       `json:"id"`
	Range  DateRangeDTO `json:"range"`
	Source string       `json:"source,omitempty"`
}

type Availability struct {
	Available bool          `json:"available"`
	Reason    string        `json:"reason,omitempty"`
	Conflicts []ConflictDTO `json:"conflicts"`
}

func MapAvailability(res availability.Result) Availability {
	conflicts := make([]ConflictDTO, 0, len(res.Conflicts))
	for _, c := range res.Conflicts {
		conflicts = append(conflicts, MapOccupancy(c))
	}
	return Availability{Available: res.Available, Reason: string(res.Reason), Conflicts: conflicts}
}

func MapOccupancy(o availability.Occupancy) ConflictDTO {
	return ConflictDTO{Kind: string(o.Kind), ID: o.ID, Range: MapRange(o.Range), Source: o.Source}
}

type BlockedPeriod struct {
	ID          string       `json:"id"`
	PropertyID  string       `json:"property_id"`
	Range       DateRangeDTO `json:"range"`
	Reason      string       `json:"reason,omitempty"`
	Source      string       `json:"source"`
	ExternalUID string       `json:"external_uid,omitempty"`
}

func MapBlockedPeriod(b *availability.BlockedPeriod) BlockedPeriod {
	return BlockedPeriod{
		ID:          string(b.ID),
		PropertyID:  string(b.PropertyID),
		Range:       MapRange(b.Range),
		Reason:      b.Reason,
		Source:      string(b.Source),
		ExternalUID: b.ExternalUID,
	}
}

// Calendar lists every occupied range of a property inside a window.
type Calendar struct {
	PropertyID string        `json:"property_id"`
	From       string        `json:"from"`
	To         string        `json:"to"`
	Occupied   []ConflictDTO `json:"occupied"`
}
