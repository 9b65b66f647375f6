package calendarsync

import (
	"sort"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
)

type ExportEvent struct {
	UID     string
	Range   daterange.DateRange
	Summary string
}

// ExportEvents projects the bookings that hold nights into feed entries.
// Only pending and confirmed bookings are published.
func ExportEvents(bookings []*booking.Booking) []ExportEvent {
	out := make([]ExportEvent, 0, len(bookings))
	for _, bk := range bookings {
		if bk.Status != booking.StatusConfirmed && bk.Status != booking.StatusPending {
			continue
		}
		summary := "Reserved"
		if bk.Status == booking.StatusPending {
			summary = "Reserved (pending)"
		}
		out = append(out, ExportEvent{UID: string(bk.ID), Range: bk.Range, Summary: summary})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.CheckIn.Equal(out[j].Range.CheckIn) {
			return out[i].UID < out[j].UID
		}
		return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
	})
	return out
}
