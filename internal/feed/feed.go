package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"umscal/internal/event"
	appLog "umscal/internal/log"
)

// ErrCacheMiss marks a local cache that is absent, unreadable, or
// malformed. Callers recover from it by fetching the feed.
var ErrCacheMiss = errors.New("event cache missing or unreadable")

// retrievedLayout is the timestamp format of the cache's "retrieved" field.
// It carries no offset; the value is always UTC.
const retrievedLayout = "2006-01-02T15:04:05"

// windowLayout formats the feed query's start/end date parameters.
const windowLayout = "2006-01-02"

// feedHeaders imitate the provider's own website AJAX calls; the endpoint
// rejects requests that do not look like them.
var feedHeaders = map[string]string{
	"User-Agent":       "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:47.0) Gecko/20100101 Firefox/47.0",
	"Accept":           "application/json, text/javascript, */*; q=0.01",
	"Accept-Language":  "en-US,en;q=0.5",
	"Referer":          "http://theums.com/calendar",
	"X-Requested-With": "XMLHTTPRequest",
	"Connection":       "keep-alive",
}

// Cache is the durable copy of the last successfully fetched feed payload.
// It is atomic: either the whole structure is valid or it does not exist;
// partial caches are never written.
type Cache struct {
	Retrieved string      `json:"retrieved"`
	Data      []event.Raw `json:"data"`
}

// Window bounds the feed query date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow returns the festival's schedule window, the only range the
// feed ever serves.
func DefaultWindow() Window {
	return Window{
		Start: time.Date(2016, 7, 27, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2016, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Source is the cache-first event data source: it loads the schedule from a
// local cache file and falls back to fetching the remote feed, persisting
// the result for reuse.
type Source struct {
	// Path is the local cache file. Empty disables both load and persist.
	Path string
	// URL is the remote feed endpoint. Empty disables fetching.
	URL string
	// Window bounds the feed query.
	Window Window

	client *http.Client
	cache  *Cache
	now    func() time.Time
}

// NewSource creates a Source over the given cache path and feed URL.
func NewSource(path, url string) *Source {
	return &Source{
		Path:   path,
		URL:    url,
		Window: DefaultWindow(),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

// Load reads the cache from disk. A missing file, bad JSON, or a structure
// without a data field all wrap ErrCacheMiss.
func (s *Source) Load() error {
	if s.Path == "" {
		return fmt.Errorf("%w: no datasource path set", ErrCacheMiss)
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheMiss, err)
	}

	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheMiss, err)
	}
	if c.Data == nil {
		return fmt.Errorf("%w: cache has no data field", ErrCacheMiss)
	}

	s.cache = &c
	return nil
}

// Fetch requests the feed for the source's date window and replaces the
// in-memory cache with the response. Transport failures are not retried;
// they propagate to the caller.
func (s *Source) Fetch(ctx context.Context) error {
	if s.URL == "" {
		return errors.New("feed URL not set, cannot fetch")
	}

	// The trailing _ parameter is a cache buster, same as the site's own
	// requests send.
	url := fmt.Sprintf("%s?start=%s&end=%s&_=%d",
		s.URL,
		s.Window.Start.Format(windowLayout),
		s.Window.End.Format(windowLayout),
		s.now().Unix(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range feedHeaders {
		req.Header.Set(k, v)
	}

	appLog.Info("feed fetch start", "url", s.URL)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("feed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed fetch: %s", resp.Status)
	}

	var records []event.Raw
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return fmt.Errorf("feed decode: %w", err)
	}

	s.cache = &Cache{
		Retrieved: s.now().UTC().Format(retrievedLayout),
		Data:      records,
	}

	appLog.Info("feed fetch success", "record_count", len(records))
	return nil
}

// Persist writes the in-memory cache to the datasource path. The caller
// decides whether a failure matters; Get logs and ignores it, Refresh does
// not.
func (s *Source) Persist() error {
	if s.cache == nil || s.Path == "" {
		return errors.New("cache and datasource path must both be set")
	}

	data, err := json.MarshalIndent(s.cache, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o600)
}

// Get returns the cache, loading it from disk first and fetching the feed
// only when no usable cache exists. A freshly fetched cache is persisted
// best-effort: a failed write only costs a re-fetch on the next run.
func (s *Source) Get(ctx context.Context) (*Cache, error) {
	if s.cache == nil {
		if err := s.Load(); err != nil {
			appLog.Debug("cache load failed, falling back to fetch", "err", err)
		}
	}

	if s.cache == nil {
		if err := s.Fetch(ctx); err != nil {
			return nil, err
		}
		if err := s.Persist(); err != nil {
			appLog.Warn("cache persist failed", "err", err, "path", s.Path)
		}
	}

	return s.cache, nil
}

// Refresh unconditionally re-fetches the feed and rewrites the cache file,
// discarding whatever was cached before. Unlike Get, a persist failure is
// returned: the caller explicitly asked for a refreshed file.
func (s *Source) Refresh(ctx context.Context) error {
	if err := s.Fetch(ctx); err != nil {
		return err
	}
	if err := s.Persist(); err != nil {
		return fmt.Errorf("cache persist: %w", err)
	}
	return nil
}

// Calendars returns the schedule grouped into per-venue calendars, sorted
// and partitioned as described on event.Group. venue filters to a single
// venue unless it is event.VenueAll.
func (s *Source) Calendars(ctx context.Context, venue string) ([]event.Calendar, error) {
	c, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return event.Group(c.Data, venue)
}
