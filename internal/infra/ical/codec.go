package ical

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
)

const productID = "-//VillaSaaS//Booking Engine//EN"

// Codec reads and writes all-day busy periods as iCalendar.
type Codec struct {
	Now func() time.Time
}

// Parse keeps one event per VEVENT except cancelled ones. Date-times are cut
// to their calendar day in their own zone; an event without DTEND lasts one day.
func (c Codec) Parse(data []byte) ([]calendarsync.ExternalEvent, error) {
	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ical: parse: %w", err)
	}
	var out []calendarsync.ExternalEvent
	for _, ev := range cal.Events() {
		if status := ev.GetProperty(ics.ComponentPropertyStatus); status != nil && strings.EqualFold(status.Value, "CANCELLED") {
			continue
		}
		item := calendarsync.ExternalEvent{UID: strings.TrimSpace(ev.Id())}
		if summary := ev.GetProperty(ics.ComponentPropertySummary); summary != nil {
			item.Summary = summary.Value
		}
		item.Range = eventRange(ev)
		out = append(out, item)
	}
	return out, nil
}

func eventRange(ev *ics.VEvent) daterange.DateRange {
	start, ok := propertyDay(ev.GetProperty(ics.ComponentPropertyDtStart))
	if !ok {
		return daterange.DateRange{}
	}
	end, ok := propertyDay(ev.GetProperty(ics.ComponentPropertyDtEnd))
	if !ok {
		end = start.AddDate(0, 0, 1)
	}
	dr, err := daterange.New(start, end)
	if err != nil {
		return daterange.DateRange{}
	}
	return dr
}

func propertyDay(prop *ics.IANAProperty) (time.Time, bool) {
	if prop == nil {
		return time.Time{}, false
	}
	value := strings.TrimSpace(prop.Value)
	loc := time.UTC
	if tzids := prop.ICalParameters[string(ics.ParameterTzid)]; len(tzids) > 0 {
		if l, err := time.LoadLocation(tzids[0]); err == nil {
			loc = l
		}
	}
	layouts := []struct {
		layout string
		loc    *time.Location
	}{
		{"20060102T150405Z", time.UTC},
		{"20060102T150405", loc},
		{"20060102", time.UTC},
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l.layout, value, l.loc); err == nil {
			return daterange.Day(t), true
		}
	}
	return time.Time{}, false
}

// Encode writes events as all-day VEVENTs with exclusive DTEND.
func (c Codec) Encode(name string, events []calendarsync.ExportEvent) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	stamp := c.now()
	for _, e := range events {
		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(e.Range.CheckIn)
		ev.SetAllDayEndAt(e.Range.CheckOut)
		ev.SetSummary(e.Summary)
		ev.SetProperty(ics.ComponentPropertyTransp, "OPAQUE")
	}
	return []byte(cal.Serialize()), nil
}

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

var _ policies.CalendarCodec = Codec{}
