package ical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
)

func day(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }

const channelFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Channel//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:all-day@channel\r\n" +
	"DTSTART;VALUE=DATE:20261102\r\n" +
	"DTEND;VALUE=DATE:20261105\r\n" +
	"SUMMARY:Reserved\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:timed@channel\r\n" +
	"DTSTART:20261210T150000Z\r\n" +
	"DTEND:20261212T100000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:single@channel\r\n" +
	"DTSTART;VALUE=DATE:20261224\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:broken@channel\r\n" +
	"DTSTART;VALUE=DATE:20261230\r\n" +
	"DTEND;VALUE=DATE:20261228\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:gone@channel\r\n" +
	"STATUS:CANCELLED\r\n" +
	"DTSTART;VALUE=DATE:20261101\r\n" +
	"DTEND;VALUE=DATE:20261102\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseReadsAllDayAndTimedEvents(t *testing.T) {
	events, err := Codec{}.Parse([]byte(channelFeed))
	require.NoError(t, err)
	require.Len(t, events, 4)

	byUID := map[string]calendarsync.ExternalEvent{}
	for _, ev := range events {
		byUID[ev.UID] = ev
	}
	assert.True(t, byUID["all-day@channel"].Range.Equal(daterange.MustNew(day(11, 2), day(11, 5))))
	assert.Equal(t, "Reserved", byUID["all-day@channel"].Summary)
	assert.True(t, byUID["timed@channel"].Range.Equal(daterange.MustNew(day(12, 10), day(12, 12))))
	assert.True(t, byUID["single@channel"].Range.Equal(daterange.MustNew(day(12, 24), day(12, 25))))
	assert.True(t, byUID["broken@channel"].Range.CheckIn.IsZero())
	assert.NotContains(t, byUID, "gone@channel")
}

func TestEncodedFeedParsesBack(t *testing.T) {
	codec := Codec{Now: func() time.Time { return day(10, 16) }}
	body, err := codec.Encode("Villa Azur", []calendarsync.ExportEvent{
		{UID: "bk-1", Range: daterange.MustNew(day(11, 2), day(11, 5)), Summary: "Reserved"},
		{UID: "bk-2", Range: daterange.MustNew(day(11, 9), day(11, 10)), Summary: "Reserved (pending)"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(body), "X-WR-CALNAME:Villa Azur")
	assert.Contains(t, string(body), "DTSTART;VALUE=DATE:20261102")

	events, err := codec.Parse(body)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "bk-1", events[0].UID)
	assert.True(t, events[0].Range.Equal(daterange.MustNew(day(11, 2), day(11, 5))))
	assert.Equal(t, "Reserved (pending)", events[1].Summary)
}

func TestFetcherReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.ics":
			_, _ = w.Write([]byte(channelFeed))
		case "/slow.ics":
			time.Sleep(200 * time.Millisecond)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	f := NewFetcher(50 * time.Millisecond)
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/ok.ics")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "BEGIN:VCALENDAR"))

	_, err = f.Fetch(ctx, srv.URL+"/missing.ics")
	var fetchErr *calendarsync.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.ErrorIs(t, err, calendarsync.ErrCalendarFetchFailed)

	_, err = f.Fetch(ctx, srv.URL+"/slow.ics")
	assert.ErrorIs(t, err, calendarsync.ErrCalendarFetchFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
