// Package writer renders sets of venue calendars through interchangeable
// output backends: console listing, CSV files, iCal files, and Google
// Calendar. Every backend that can destroy existing data goes through a
// prompt.Confirmer first unless told to destroy silently.
package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"umscal/internal/event"
	appLog "umscal/internal/log"
	"umscal/internal/prompt"
)

// ErrEmptyCalendar is returned when a calendar with no events reaches a
// format whose output is derived from its first event.
var ErrEmptyCalendar = errors.New("calendar has no events")

// Writer renders a set of calendars to one output medium. With flatten set,
// all calendars are merged into a single re-sorted one first.
type Writer interface {
	Write(ctx context.Context, cals []event.Calendar, flatten bool) error
}

// Format is the capability set a file-based backend provides: a filename
// extension and a single-calendar encoder.
type Format interface {
	// Ext returns the filename extension, including the dot.
	Ext() string
	// Encode writes one calendar to w.
	Encode(w io.Writer, cal event.Calendar) error
}

// FileWriter writes calendars to disk in a pluggable Format. Flattened
// writes go to Output as a single file; otherwise Output is treated as a
// directory holding one file per calendar.
type FileWriter struct {
	Output              string
	SilentlyDestroyData bool
	Confirm             prompt.Confirmer
	Format              Format
}

func (fw *FileWriter) Write(ctx context.Context, cals []event.Calendar, flatten bool) error {
	if flatten {
		return fw.ToFile(event.Flatten(cals), fw.Output)
	}
	return fw.ToDirectory(cals)
}

// ToDirectory writes one file per calendar under the Output directory,
// creating it if needed. Filenames come from CalendarFilename.
func (fw *FileWriter) ToDirectory(cals []event.Calendar) error {
	if err := os.MkdirAll(fw.Output, 0o755); err != nil {
		return err
	}
	for _, cal := range cals {
		if err := fw.ToFile(cal, filepath.Join(fw.Output, fw.CalendarFilename(cal))); err != nil {
			return err
		}
	}
	return nil
}

// ToFile writes a single calendar to path. If the path already exists and
// SilentlyDestroyData is not set, the confirmer is asked first; a declined
// overwrite skips the write entirely, leaving the existing file untouched.
// The calendar is encoded in memory before the file is replaced, so a
// failed encode never truncates an existing file.
func (fw *FileWriter) ToFile(cal event.Calendar, path string) error {
	if !fw.SilentlyDestroyData {
		if _, err := os.Stat(path); err == nil {
			question := fmt.Sprintf("Delete existing file at %s?", path)
			if fw.Confirm == nil || !fw.Confirm.Confirm(question) {
				appLog.Info("existing file left untouched", "path", path)
				return nil
			}
		}
	}

	var buf bytes.Buffer
	if err := fw.Format.Encode(&buf, cal); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// CalendarFilename derives a filename from the calendar's label: lowercase,
// parentheses stripped, "@" spelled out, plus the format's extension.
func (fw *FileWriter) CalendarFilename(cal event.Calendar) string {
	name := strings.ToLower(cal.Name)
	name = strings.ReplaceAll(name, "(", "")
	name = strings.ReplaceAll(name, ")", "")
	name = strings.ReplaceAll(name, "@", "at")
	return name + fw.Format.Ext()
}

// markdownLink renders the artist/venue link pair used in event
// descriptions: "[artist](artist_url) @ [venue](venue_url)".
func markdownLink(ev event.Event) string {
	return fmt.Sprintf("[%s](%s) @ [%s](%s)", ev.Artist, ev.ArtistURL, ev.Venue, ev.VenueURL)
}
