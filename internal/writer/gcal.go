package writer

import (
	"context"
	"fmt"

	"google.golang.org/api/calendar/v3"

	"umscal/internal/event"
	"umscal/internal/gcal"
	appLog "umscal/internal/log"
	"umscal/internal/prompt"
)

// gcalOffset is appended verbatim to local timestamps. The feed serves
// Mountain-time wall clocks tagged +0000, so re-tagging them with the
// venue's real offset makes them land correctly in Google Calendar.
const gcalOffset = "-06:00"

// GCalWriter replaces per-venue Google calendars with freshly imported
// ones. An existing calendar with the same name is deleted first, gated by
// the confirmer unless SilentlyDestroyData is set.
type GCalWriter struct {
	Service             gcal.Service
	SilentlyDestroyData bool
	Confirm             prompt.Confirmer
}

// ToGCal maps an event onto the calendar service's event schema.
func ToGCal(ev event.Event) *calendar.Event {
	return &calendar.Event{
		Start:       &calendar.EventDateTime{DateTime: ev.Start.Format("2006-01-02T15:04:05") + gcalOffset},
		End:         &calendar.EventDateTime{DateTime: ev.End.Format("2006-01-02T15:04:05") + gcalOffset},
		Location:    ev.Address,
		Description: markdownLink(ev),
		Summary:     ev.Artist,
	}
}

// Write imports every calendar into the remote account. Deletion and
// insertion are issued sequentially, one remote call per event; there is no
// batching and no rollback, so a failure mid-import leaves the remote
// calendar partially populated.
func (w *GCalWriter) Write(ctx context.Context, cals []event.Calendar, flatten bool) error {
	if flatten {
		cals = []event.Calendar{event.Flatten(cals)}
	}

	// The remote calendar list is loaded at most once per Write call and
	// discarded when it returns.
	var existing map[string]string
	listByName := func() (map[string]string, error) {
		if existing != nil {
			return existing, nil
		}
		entries, err := w.Service.ListCalendars(ctx)
		if err != nil {
			return nil, fmt.Errorf("list calendars: %w", err)
		}
		existing = make(map[string]string, len(entries))
		for _, e := range entries {
			existing[e.Summary] = e.ID
		}
		return existing, nil
	}

	for _, cal := range cals {
		proceed, err := w.clearExisting(ctx, listByName, cal.Name)
		if err != nil {
			return err
		}
		if !proceed {
			appLog.Info("google calendar left untouched", "calendar", cal.Name)
			continue
		}

		appLog.Info("importing events into google calendar",
			"calendar", cal.Name, "event_count", len(cal.Events))

		id, err := w.Service.InsertCalendar(ctx, cal.Name)
		if err != nil {
			return fmt.Errorf("insert calendar %q: %w", cal.Name, err)
		}
		for _, ev := range cal.Events {
			if err := w.Service.InsertEvent(ctx, id, ToGCal(ev)); err != nil {
				return fmt.Errorf("insert event %q into %q: %w", ev.Artist, cal.Name, err)
			}
		}
	}
	return nil
}

// clearExisting deletes the remote calendar called name if one exists.
// It reports false when the user declined the deletion, in which case the
// whole calendar import is skipped.
func (w *GCalWriter) clearExisting(ctx context.Context, listByName func() (map[string]string, error), name string) (bool, error) {
	existing, err := listByName()
	if err != nil {
		return false, err
	}
	id, ok := existing[name]
	if !ok {
		return true, nil
	}

	if !w.SilentlyDestroyData {
		question := fmt.Sprintf("About to delete existing google calendar %q. Ok?", name)
		if w.Confirm == nil || !w.Confirm.Confirm(question) {
			return false, nil
		}
	}

	if err := w.Service.DeleteCalendar(ctx, id); err != nil {
		return false, fmt.Errorf("delete calendar %q: %w", name, err)
	}
	delete(existing, name)
	return true, nil
}
