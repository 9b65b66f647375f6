package calendarsync

import (
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
)

// ExternalEvent is a busy period read from a foreign calendar.
type ExternalEvent struct {
	UID     string
	Range   daterange.DateRange
	Summary string
}

type Update struct {
	Block *availability.BlockedPeriod
	Event ExternalEvent
}

type SkippedEvent struct {
	UID       string
	Range     daterange.DateRange
	BookingID booking.BookingID
	Reason    string
}

const (
	SkipConfirmedBooking = "overlaps_confirmed_booking"
	SkipInvalidRange     = "invalid_range"
	SkipDuplicateUID     = "duplicate_uid"
)

// Plan lists the changes that bring imported blocks in line with a feed.
type Plan struct {
	Create    []ExternalEvent
	Update    []Update
	Delete    []*availability.BlockedPeriod
	Unchanged int
	Converted int
	Skipped   []SkippedEvent
}

func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Reconcile compares a parsed feed with the blocks previously imported from it.
// existing must only hold blocks of this feed; bookings are the property's
// bookings. Local confirmed bookings always win over the feed, and a block whose
// UID was converted into a local booking is never removed by a later sync.
func Reconcile(events []ExternalEvent, existing []*availability.BlockedPeriod, bookings []*booking.Booking) Plan {
	var plan Plan

	byUID := make(map[string]*availability.BlockedPeriod, len(existing))
	for _, b := range existing {
		byUID[b.ExternalUID] = b
	}
	converted := make(map[string]struct{})
	var confirmed []*booking.Booking
	for _, bk := range bookings {
		if bk.ExternalUID != "" && bk.Status != booking.StatusCancelled {
			converted[bk.ExternalUID] = struct{}{}
		}
		if bk.Status == booking.StatusConfirmed {
			confirmed = append(confirmed, bk)
		}
	}

	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if ev.UID == "" || ev.Range.Validate() != nil {
			plan.Skipped = append(plan.Skipped, SkippedEvent{UID: ev.UID, Range: ev.Range, Reason: SkipInvalidRange})
			continue
		}
		if _, dup := seen[ev.UID]; dup {
			plan.Skipped = append(plan.Skipped, SkippedEvent{UID: ev.UID, Range: ev.Range, Reason: SkipDuplicateUID})
			continue
		}
		seen[ev.UID] = struct{}{}

		if _, ok := converted[ev.UID]; ok {
			plan.Converted++
			continue
		}
		current := byUID[ev.UID]
		if bk := firstOverlap(confirmed, ev.Range); bk != nil {
			plan.Skipped = append(plan.Skipped, SkippedEvent{UID: ev.UID, Range: ev.Range, BookingID: bk.ID, Reason: SkipConfirmedBooking})
			if current != nil {
				plan.Delete = append(plan.Delete, current)
			}
			continue
		}
		switch {
		case current == nil:
			plan.Create = append(plan.Create, ev)
		case current.Range.Equal(ev.Range):
			plan.Unchanged++
		default:
			plan.Update = append(plan.Update, Update{Block: current, Event: ev})
		}
	}

	for _, b := range existing {
		if _, ok := seen[b.ExternalUID]; ok {
			continue
		}
		if _, ok := converted[b.ExternalUID]; ok {
			plan.Converted++
			continue
		}
		plan.Delete = append(plan.Delete, b)
	}
	return plan
}

func firstOverlap(bookings []*booking.Booking, dr daterange.DateRange) *booking.Booking {
	for _, bk := range bookings {
		if bk.Range.Overlaps(dr) {
			return bk
		}
	}
	return nil
}
