package writer

import (
	"encoding/csv"
	"fmt"
	"io"

	"umscal/internal/event"
)

// csvHeader is the fixed column set Google Calendar's CSV import expects.
var csvHeader = []string{
	"Location",
	"Description",
	"Start Date",
	"Start Time",
	"End Date",
	"End Time",
	"All Day Event",
	"Subject",
	"Private",
}

// CSVFormat encodes calendars as Google-Calendar-importable CSV files.
type CSVFormat struct{}

func (CSVFormat) Ext() string { return ".csv" }

// Encode writes a header row followed by one row per event. A calendar
// with no events is refused rather than written as a header-only file.
func (CSVFormat) Encode(w io.Writer, cal event.Calendar) error {
	if len(cal.Events) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyCalendar, cal.Name)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, ev := range cal.Events {
		row := []string{
			ev.Address,
			ev.Venue,
			ev.Start.Format("01/02/2006"),
			ev.Start.Format("03:04 PM"),
			ev.End.Format("01/02/2006"),
			ev.End.Format("03:04 PM"),
			"False",
			ev.Artist,
			"False",
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
