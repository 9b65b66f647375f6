package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
)

type ConflictKind string

const (
	ConflictBooking ConflictKind = "booking"
	ConflictBlock   ConflictKind = "blocked_period"
)

type Reason string

const (
	ReasonNone     Reason = ""
	ReasonPast     Reason = "past"
	ReasonConflict Reason = "conflict"
)

// Occupancy is an interval that holds nights, either a non-cancelled booking or a block.
type Occupancy struct {
	Kind   ConflictKind
	ID     string
	Range  daterange.DateRange
	Source string
}

type Conflict = Occupancy

type Query struct {
	Range            daterange.DateRange
	ExcludeBookingID string
	ExcludeBlockID   string
}

func (q Query) excludes(occ Occupancy) bool {
	switch occ.Kind {
	case ConflictBooking:
		return q.ExcludeBookingID != "" && occ.ID == q.ExcludeBookingID
	case ConflictBlock:
		return q.ExcludeBlockID != "" && occ.ID == q.ExcludeBlockID
	}
	return false
}

type Result struct {
	Available bool
	Reason    Reason
	Conflicts []Conflict
}

// Evaluate decides availability of q against occupancies. A check-in before
// today is refused regardless of conflicts.
func Evaluate(q Query, occupancies []Occupancy, today time.Time) Result {
	if q.Range.CheckIn.Before(daterange.Day(today)) {
		return Result{Available: false, Reason: ReasonPast}
	}
	var conflicts []Conflict
	for _, occ := range occupancies {
		if q.excludes(occ) {
			continue
		}
		if occ.Range.Overlaps(q.Range) {
			conflicts = append(conflicts, occ)
		}
	}
	if len(conflicts) == 0 {
		return Result{Available: true}
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Range.CheckIn.Before(conflicts[j].Range.CheckIn)
	})
	return Result{Available: false, Reason: ReasonConflict, Conflicts: conflicts}
}

// Err converts an unavailable result into an error carrying the conflicts.
func (r Result) Err() error {
	switch {
	case r.Available:
		return nil
	case r.Reason == ReasonPast:
		return ErrPastDateRequested
	default:
		return &ConflictError{Conflicts: r.Conflicts}
	}
}

func BlockOccupancy(b *BlockedPeriod) Occupancy {
	return Occupancy{Kind: ConflictBlock, ID: string(b.ID), Range: b.Range, Source: string(b.Source)}
}

type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s %s [%s, %s)", c.Kind, c.ID, c.Range.CheckIn.Format(time.DateOnly), c.Range.CheckOut.Format(time.DateOnly)))
	}
	return fmt.Sprintf("availability: range is not available: %s", strings.Join(parts, "; "))
}

func (e *ConflictError) Unwrap() error { return ErrAvailabilityConflict }
