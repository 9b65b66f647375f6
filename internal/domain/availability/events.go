package availability

import (
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"
)

type CalendarBlocked struct {
	events.Meta
	PropertyID string
	BlockID    string
	Range      daterange.DateRange
	Source     Source
}

func (e CalendarBlocked) EventName() string   { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string { return e.PropertyID }

type CalendarReleased struct {
	events.Meta
	PropertyID string
	BlockID    string
	Range      daterange.DateRange
	Source     Source
}

func (e CalendarReleased) EventName() string   { return "calendar.released" }
func (e CalendarReleased) AggregateID() string { return e.PropertyID }
