package calendarsync

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var (
	ErrSubscriptionNotFound = errors.New("calendarsync: subscription not found")
	ErrInvalidFeedURL       = errors.New("calendarsync: feed url must be http or https")
	ErrCalendarFetchFailed  = errors.New("calendarsync: calendar fetch failed")
	ErrCalendarParseFailed  = errors.New("calendarsync: calendar could not be parsed")
)

type SubscriptionID string

// Subscription is an external iCal feed imported into a property's calendar.
type Subscription struct {
	ID         SubscriptionID
	TenantID   tenant.ID
	PropertyID property.PropertyID
	Name       string
	URL        string
	Enabled    bool
	LastSyncAt time.Time
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type SubscriptionRepository interface {
	ByID(ctx context.Context, tenantID tenant.ID, id SubscriptionID) (*Subscription, error)
	ListByProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID) ([]*Subscription, error)
	// ListEnabled spans all tenants; the scheduler uses it.
	ListEnabled(ctx context.Context) ([]*Subscription, error)
	Save(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, tenantID tenant.ID, id SubscriptionID) error
}

func NewSubscription(id SubscriptionID, tenantID tenant.ID, propertyID property.PropertyID, name, feedURL string, now time.Time) (*Subscription, error) {
	if err := tenantID.Validate(); err != nil {
		return nil, err
	}
	if propertyID == "" {
		return nil, errors.New("calendarsync: property id required")
	}
	normalized, err := NormalizeFeedURL(feedURL)
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Subscription{
		ID:         id,
		TenantID:   tenantID,
		PropertyID: propertyID,
		Name:       strings.TrimSpace(name),
		URL:        normalized,
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// NormalizeFeedURL accepts webcal:// links as https.
func NormalizeFeedURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(raw), "webcal://") {
		raw = "https://" + raw[len("webcal://"):]
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidFeedURL
	}
	return u.String(), nil
}

func (s *Subscription) RecordSync(report ImportReport) {
	s.LastSyncAt = report.FinishedAt.UTC()
	s.LastError = report.Error
	s.UpdatedAt = s.LastSyncAt
}
