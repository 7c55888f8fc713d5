package writer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umscal/internal/event"
	"umscal/internal/prompt"
)

func rawFixture(artist, venue, start, end string) event.Raw {
	return event.Raw{
		Start:       start,
		End:         end,
		VenueArtist: artist,
		URL:         "http://example.com/artists/" + artist,
		VenueName:   venue,
		VenueURL:    "http://example.com/venues/" + venue,
		Description: "123 Fake Lane, Denver, CO",
	}
}

// testCalendars returns two venue calendars with three events each.
func testCalendars(t *testing.T) []event.Calendar {
	t.Helper()
	cals, err := event.Group([]event.Raw{
		rawFixture("artist1", "venue1", "2016-07-28T21:00:00+0000", "2016-07-28T21:40:00+0000"),
		rawFixture("artist2", "venue1", "2016-07-28T22:00:00+0000", "2016-07-28T22:40:00+0000"),
		rawFixture("artist3", "venue1", "2016-07-28T23:00:00+0000", "2016-07-28T23:40:00+0000"),
		rawFixture("artist4", "venue2", "2016-07-28T21:00:00+0000", "2016-07-28T21:40:00+0000"),
		rawFixture("artist5", "venue2", "2016-07-28T22:00:00+0000", "2016-07-28T22:40:00+0000"),
		rawFixture("artist6", "venue2", "2016-07-28T23:00:00+0000", "2016-07-28T23:40:00+0000"),
	}, event.VenueAll)
	require.NoError(t, err)
	require.Len(t, cals, 2)
	return cals
}

// confirmNever fails the test if any confirmation is requested.
func confirmNever(t *testing.T) prompt.Confirmer {
	t.Helper()
	return prompt.ConfirmerFunc(func(q string) bool {
		t.Fatalf("unexpected confirmation request: %q", q)
		return false
	})
}

func answer(resp bool) prompt.Confirmer {
	return prompt.ConfirmerFunc(func(string) bool { return resp })
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return len(strings.Split(strings.TrimRight(string(data), "\n"), "\n"))
}

func TestCSVToDirectory(t *testing.T) {
	dir := t.TempDir()
	fw := &FileWriter{Output: dir, Confirm: confirmNever(t), Format: CSVFormat{}}

	require.NoError(t, fw.Write(context.Background(), testCalendars(t), false))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, name := range []string{"ums - venue1.csv", "ums - venue2.csv"} {
		path := filepath.Join(dir, name)
		assert.FileExists(t, path)
		assert.Equal(t, 4, countLines(t, path), "header plus 3 entries")
	}
}

func TestCSVFlattenedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")
	fw := &FileWriter{Output: path, Confirm: confirmNever(t), Format: CSVFormat{}}

	require.NoError(t, fw.Write(context.Background(), testCalendars(t), true))
	assert.Equal(t, 7, countLines(t, path), "header plus 6 entries")
}

func TestCSVRowContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")
	fw := &FileWriter{Output: path, Confirm: confirmNever(t), Format: CSVFormat{}}
	require.NoError(t, fw.Write(context.Background(), testCalendars(t), true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	assert.Equal(t, "Location,Description,Start Date,Start Time,End Date,End Time,All Day Event,Subject,Private", lines[0])
	assert.Equal(t, `"123 Fake Lane, Denver, CO",venue1,07/28/2016,09:00 PM,07/28/2016,09:40 PM,False,artist1,False`, lines[1])
}

func TestCSVSilentOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	fw := &FileWriter{
		Output:              path,
		SilentlyDestroyData: true,
		Confirm:             confirmNever(t),
		Format:              CSVFormat{},
	}
	require.NoError(t, fw.Write(context.Background(), testCalendars(t), true))
	assert.Equal(t, 7, countLines(t, path))
}

func TestCSVOverwriteDeclined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	fw := &FileWriter{Output: path, Confirm: answer(false), Format: CSVFormat{}}
	require.NoError(t, fw.Write(context.Background(), testCalendars(t), true), "a declined overwrite is not an error")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no file created elsewhere")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data, "existing file stays byte-for-byte untouched")
}

func TestCSVOverwriteConfirmed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	fw := &FileWriter{Output: path, Confirm: answer(true), Format: CSVFormat{}}
	require.NoError(t, fw.Write(context.Background(), testCalendars(t), true))
	assert.Equal(t, 7, countLines(t, path))
}

func TestCSVNilConfirmerDeclines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	fw := &FileWriter{Output: path, Format: CSVFormat{}}
	require.NoError(t, fw.Write(context.Background(), testCalendars(t), true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCSVEmptyCalendar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	fw := &FileWriter{Output: path, Confirm: confirmNever(t), Format: CSVFormat{}}

	err := fw.ToFile(event.Calendar{Name: "UMS - nowhere"}, path)
	assert.ErrorIs(t, err, ErrEmptyCalendar)
	assert.NoFileExists(t, path, "a refused encode must not leave a file behind")
}

func TestCalendarFilename(t *testing.T) {
	fw := &FileWriter{Format: CSVFormat{}}

	assert.Equal(t, "ums - venue1.csv", fw.CalendarFilename(event.Calendar{Name: "UMS - venue1"}))
	assert.Equal(t, "ums - three at the door all ages.csv",
		fw.CalendarFilename(event.Calendar{Name: "UMS - Three @ The Door (All Ages)"}))

	fw.Format = ICalFormat{}
	assert.Equal(t, "ums - venue1.ical", fw.CalendarFilename(event.Calendar{Name: "UMS - venue1"}))
}

func TestICalToDirectory(t *testing.T) {
	dir := t.TempDir()
	fw := &FileWriter{Output: dir, Confirm: confirmNever(t), Format: ICalFormat{}}

	require.NoError(t, fw.Write(context.Background(), testCalendars(t), false))

	assert.FileExists(t, filepath.Join(dir, "ums - venue1.ical"))
	assert.FileExists(t, filepath.Join(dir, "ums - venue2.ical"))
}

func TestICalFlattenedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all.ical")
	fw := &FileWriter{Output: path, Confirm: confirmNever(t), Format: ICalFormat{}}
	require.NoError(t, fw.Write(context.Background(), testCalendars(t), true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Undo RFC 5545 line folding so long properties can be matched whole.
	body := strings.ReplaceAll(string(data), "\r\n ", "")

	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "NAME:UMS")
	assert.Equal(t, 6, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:artist1")
	assert.Contains(t, body, "venue1: 123 Fake Lane")
	assert.Contains(t, body, "[artist1](http://example.com/artists/artist1) @ [venue1](http://example.com/venues/venue1)")
}

func TestStdoutWriter(t *testing.T) {
	cals := testCalendars(t)

	var grouped bytes.Buffer
	w := &StdoutWriter{Out: &grouped}
	require.NoError(t, w.Write(context.Background(), cals, false))

	assert.Contains(t, grouped.String(), "UMS - venue1:\n")
	assert.Contains(t, grouped.String(), "\t(Thu 09:00 PM - 09:40 PM): artist1\n")
	assert.NotContains(t, grouped.String(), "artist1 @ venue1")

	var flat bytes.Buffer
	w.Out = &flat
	require.NoError(t, w.Write(context.Background(), cals, true))

	assert.Contains(t, flat.String(), "UMS:\n")
	assert.Contains(t, flat.String(), "\t(Thu 09:00 PM - 09:40 PM): artist1 @ venue1\n")
}
