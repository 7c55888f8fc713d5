package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the timestamp format the feed uses for event start/end
// values. The +0000 suffix is a literal part of the format: the feed always
// tags wall-clock times with it, so it is matched as text rather than
// parsed as a generic offset.
const DateLayout = "2006-01-02T15:04:05+0000"

const (
	// venuePrefix labels per-venue calendars, e.g. "UMS - Hi-Dive".
	venuePrefix = "UMS - "

	// FlatCalendarName labels the single calendar produced by Flatten.
	FlatCalendarName = "UMS"

	// VenueAll makes Group keep every venue instead of filtering to one.
	VenueAll = "all"
)

// ErrMalformedRecord marks a feed record that is missing required fields or
// carries unparsable timestamps. Grouping cannot proceed with a partial
// event, so callers treat this as fatal.
var ErrMalformedRecord = errors.New("malformed event record")

// Raw is the wire shape of a single feed record, shared by the remote feed
// response and the local cache file.
type Raw struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	VenueArtist string `json:"venue_artist"`
	URL         string `json:"url"`
	VenueName   string `json:"venue_name"`
	VenueURL    string `json:"venue_url"`
	Description string `json:"description"`
}

// Event is a single parsed schedule entry. It is built once by Parse and
// never mutated afterwards.
type Event struct {
	Start     time.Time
	End       time.Time
	Artist    string
	ArtistURL string
	Venue     string
	VenueURL  string
	Address   string
}

// Parse builds an Event from a raw feed record.
func Parse(raw Raw) (Event, error) {
	if strings.TrimSpace(raw.VenueArtist) == "" {
		return Event{}, fmt.Errorf("%w: missing venue_artist", ErrMalformedRecord)
	}
	if raw.VenueName == "" {
		return Event{}, fmt.Errorf("%w: missing venue_name", ErrMalformedRecord)
	}
	start, err := time.Parse(DateLayout, raw.Start)
	if err != nil {
		return Event{}, fmt.Errorf("%w: bad start %q", ErrMalformedRecord, raw.Start)
	}
	end, err := time.Parse(DateLayout, raw.End)
	if err != nil {
		return Event{}, fmt.Errorf("%w: bad end %q", ErrMalformedRecord, raw.End)
	}

	return Event{
		Start:     start,
		End:       end,
		Artist:    strings.TrimSpace(raw.VenueArtist),
		ArtistURL: raw.URL,
		Venue:     raw.VenueName,
		VenueURL:  raw.VenueURL,
		Address:   raw.Description,
	}, nil
}

// StringWithoutVenue renders the event as a console listing line, e.g.
// "(Thu 09:00 PM - 09:40 PM): artist1".
func (e Event) StringWithoutVenue() string {
	return fmt.Sprintf("(%s - %s): %s",
		e.Start.Format("Mon 03:04 PM"), e.End.Format("03:04 PM"), e.Artist)
}

// StringWithVenue is StringWithoutVenue with the venue appended, used when
// calendars have been flattened and grouping no longer implies the venue.
func (e Event) StringWithVenue() string {
	return e.StringWithoutVenue() + " @ " + e.Venue
}

// Calendar is a named ordered sequence of events. Events are kept sorted
// ascending by Start; ties preserve input order.
type Calendar struct {
	Name   string
	Events []Event
}

// VenueCalendarName returns the calendar label for a single venue.
func VenueCalendarName(venue string) string {
	return venuePrefix + venue
}

// Group parses every raw record, sorts all events by start time (stable),
// and partitions them into one calendar per venue. Calendars appear in
// first-seen venue order within the sorted event sequence. venue restricts
// the result to a single venue unless it is VenueAll.
func Group(raws []Raw, venue string) ([]Calendar, error) {
	events := make([]Event, 0, len(raws))
	for i, raw := range raws {
		ev, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})

	var cals []Calendar
	index := make(map[string]int)
	for _, ev := range events {
		if venue != VenueAll && venue != ev.Venue {
			continue
		}
		i, ok := index[ev.Venue]
		if !ok {
			i = len(cals)
			index[ev.Venue] = i
			cals = append(cals, Calendar{Name: VenueCalendarName(ev.Venue)})
		}
		cals[i].Events = append(cals[i].Events, ev)
	}
	return cals, nil
}

// Flatten merges all events from the given calendars into one calendar
// named FlatCalendarName. The merge destroys per-calendar order guarantees,
// so the result is re-sorted by start time.
func Flatten(cals []Calendar) Calendar {
	flat := Calendar{Name: FlatCalendarName}
	for _, cal := range cals {
		flat.Events = append(flat.Events, cal.Events...)
	}
	sort.SliceStable(flat.Events, func(i, j int) bool {
		return flat.Events[i].Start.Before(flat.Events[j].Start)
	})
	return flat
}
