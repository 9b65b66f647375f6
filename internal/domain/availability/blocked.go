package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var (
	ErrBlockNotFound        = errors.New("availability: blocked period not found")
	ErrAvailabilityConflict = errors.New("availability: range is not available")
	ErrPastDateRequested    = errors.New("availability: check-in date is in the past")
	ErrImportedBlock        = errors.New("availability: imported blocks are managed by calendar sync")
	ErrBlockNotConvertible  = errors.New("availability: only imported blocks covering the stay can become bookings")
)

type BlockID string

type Source string

const (
	SourceManual     Source = "manual"
	SourceICalImport Source = "ical-import"
)

// BlockedPeriod is owner- or sync-created unavailability over [Range.CheckIn, Range.CheckOut).
type BlockedPeriod struct {
	ID          BlockID
	TenantID    tenant.ID
	PropertyID  property.PropertyID
	Range       daterange.DateRange
	Reason      string
	Source      Source
	ExternalUID string
	FeedURL     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, tenantID tenant.ID, id BlockID) (*BlockedPeriod, error)
	ListOverlapping(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]*BlockedPeriod, error)
	// ByFeed returns the blocks imported from feedURL for the property.
	ByFeed(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, feedURL string) ([]*BlockedPeriod, error)
	Save(ctx context.Context, block *BlockedPeriod) error
	Delete(ctx context.Context, tenantID tenant.ID, id BlockID) error
}

type BlockParams struct {
	ID          BlockID
	TenantID    tenant.ID
	PropertyID  property.PropertyID
	Range       daterange.DateRange
	Reason      string
	Source      Source
	ExternalUID string
	FeedURL     string
	Now         time.Time
}

func NewBlockedPeriod(params BlockParams) (*BlockedPeriod, error) {
	if err := params.TenantID.Validate(); err != nil {
		return nil, err
	}
	if params.PropertyID == "" {
		return nil, errors.New("availability: property id required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	source := params.Source
	if source == "" {
		source = SourceManual
	}
	if source == SourceICalImport && (params.ExternalUID == "" || params.FeedURL == "") {
		return nil, errors.New("availability: imported block requires uid and feed url")
	}
	now := params.Now.UTC()
	b := &BlockedPeriod{
		ID:          params.ID,
		TenantID:    params.TenantID,
		PropertyID:  params.PropertyID,
		Range:       params.Range,
		Reason:      strings.TrimSpace(params.Reason),
		Source:      source,
		ExternalUID: params.ExternalUID,
		FeedURL:     params.FeedURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Record(CalendarBlocked{Meta: events.NewMeta(string(b.TenantID), now), PropertyID: string(b.PropertyID), BlockID: string(b.ID), Range: b.Range, Source: b.Source})
	return b, nil
}

// Reschedule moves an imported block to the range its source event now reports.
func (b *BlockedPeriod) Reschedule(dr daterange.DateRange, reason string, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	b.Range = dr
	if reason != "" {
		b.Reason = reason
	}
	b.UpdatedAt = now.UTC()
	b.Record(CalendarBlocked{Meta: events.NewMeta(string(b.TenantID), b.UpdatedAt), PropertyID: string(b.PropertyID), BlockID: string(b.ID), Range: b.Range, Source: b.Source})
	return nil
}

// Release records the removal; deleting the row is the repository's job.
func (b *BlockedPeriod) Release(now time.Time) {
	b.Record(CalendarReleased{Meta: events.NewMeta(string(b.TenantID), now.UTC()), PropertyID: string(b.PropertyID), BlockID: string(b.ID), Range: b.Range, Source: b.Source})
}

// ConvertTo hands an imported block's nights to a local booking over stay. The
// block is released; the caller deletes the row in the same unit of work.
func (b *BlockedPeriod) ConvertTo(stay daterange.DateRange, now time.Time) error {
	if !b.Imported() || !b.Range.Contains(stay) {
		return ErrBlockNotConvertible
	}
	b.Release(now)
	return nil
}

func (b *BlockedPeriod) Imported() bool {
	return b.Source == SourceICalImport
}
