package writer

import (
	"fmt"
	"io"

	ics "github.com/arran4/golang-ical"

	"umscal/internal/event"
)

const (
	icalProductID = "-//umscal//UMS schedule export//EN"
	icalVersion   = "2.0"
)

// ICalFormat encodes each calendar as a single VCALENDAR with one VEVENT
// per event.
type ICalFormat struct{}

func (ICalFormat) Ext() string { return ".ical" }

func (ICalFormat) Encode(w io.Writer, cal event.Calendar) error {
	c := ics.NewCalendar()
	c.SetProductId(icalProductID)
	c.SetVersion(icalVersion)
	c.SetName(cal.Name)

	for i, ev := range cal.Events {
		ve := c.AddEvent(fmt.Sprintf("%s-%d@umscal", ev.Start.Format("20060102T150405"), i))
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Artist)
		ve.SetLocation(ev.Venue + ": " + ev.Address)
		ve.SetDescription(markdownLink(ev))
	}

	return c.SerializeTo(w)
}
