package calendarsync

import "fmt"

// FetchError describes a failed download of an external calendar.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calendarsync: fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("calendarsync: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCalendarFetchFailed}
	}
	return []error{ErrCalendarFetchFailed, e.Err}
}
