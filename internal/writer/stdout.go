package writer

import (
	"context"
	"fmt"
	"io"
	"os"

	"umscal/internal/event"
)

// StdoutWriter prints each calendar's name followed by one indented line
// per event. Flattened listings include the venue on every line; grouped
// listings omit it since the calendar name already names the venue.
type StdoutWriter struct {
	Out io.Writer
}

// NewStdoutWriter returns a StdoutWriter bound to stdout.
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{Out: os.Stdout}
}

func (w *StdoutWriter) Write(ctx context.Context, cals []event.Calendar, flatten bool) error {
	if flatten {
		cals = []event.Calendar{event.Flatten(cals)}
	}
	for _, cal := range cals {
		fmt.Fprintf(w.Out, "%s:\n", cal.Name)
		for _, ev := range cal.Events {
			if flatten {
				fmt.Fprintf(w.Out, "\t%s\n", ev.StringWithVenue())
			} else {
				fmt.Fprintf(w.Out, "\t%s\n", ev.StringWithoutVenue())
			}
		}
		fmt.Fprintln(w.Out)
	}
	return nil
}
