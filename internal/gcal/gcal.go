// Package gcal wraps the Google Calendar v3 API in the small surface the
// writers consume, so tests can substitute a fake service and nothing else
// in the program touches the API client directly.
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarEntry is one entry of the remote account's calendar list.
type CalendarEntry struct {
	Summary string
	ID      string
}

// Service is the slice of the remote calendar API used for exporting:
// list, insert, and delete calendars, and insert single events.
type Service interface {
	ListCalendars(ctx context.Context) ([]CalendarEntry, error)
	InsertCalendar(ctx context.Context, summary string) (string, error)
	InsertEvent(ctx context.Context, calendarID string, ev *calendar.Event) error
	DeleteCalendar(ctx context.Context, id string) error
}

type service struct {
	svc *calendar.Service
}

// NewService builds a Service from an OAuth client secrets file and a
// cached token file. The token must already exist (obtained once through
// the provider's consent flow); this tool never opens a browser itself.
func NewService(ctx context.Context, secretsPath, tokenPath string) (Service, error) {
	secrets, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}
	conf, err := google.ConfigFromJSON(secrets, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, tok)))
	if err != nil {
		return nil, err
	}
	return &service{svc: svc}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *service) ListCalendars(ctx context.Context) ([]CalendarEntry, error) {
	resp, err := s.svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	entries := make([]CalendarEntry, 0, len(resp.Items))
	for _, item := range resp.Items {
		entries = append(entries, CalendarEntry{Summary: item.Summary, ID: item.Id})
	}
	return entries, nil
}

func (s *service) InsertCalendar(ctx context.Context, summary string) (string, error) {
	created, err := s.svc.Calendars.Insert(&calendar.Calendar{Summary: summary}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (s *service) InsertEvent(ctx context.Context, calendarID string, ev *calendar.Event) error {
	_, err := s.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	return err
}

func (s *service) DeleteCalendar(ctx context.Context, id string) error {
	return s.svc.Calendars.Delete(id).Context(ctx).Do()
}
