package ical

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
)

const maxFeedBytes = 5 << 20

// Fetcher downloads feeds over HTTP. Every failure, including a non-2xx
// status or an oversized body, comes back as *calendarsync.FetchError.
type Fetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{Client: &http.Client{}, Timeout: timeout, UserAgent: "villasaas-calendar-sync/1.0"}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &calendarsync.FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &calendarsync.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &calendarsync.FetchError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return nil, &calendarsync.FetchError{URL: url, Err: err}
	}
	if len(body) > maxFeedBytes {
		return nil, &calendarsync.FetchError{URL: url, Err: fmt.Errorf("feed larger than %d bytes", maxFeedBytes)}
	}
	return body, nil
}

var _ policies.CalendarFetcher = (*Fetcher)(nil)
