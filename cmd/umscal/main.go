package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"umscal/internal/config"
	"umscal/internal/event"
	"umscal/internal/feed"
	"umscal/internal/gcal"
	appLog "umscal/internal/log"
	"umscal/internal/prompt"
	"umscal/internal/writer"
)

// flagConfig holds CLI flag values. Flags override the config file.
type flagConfig struct {
	configPath string

	datasource   string
	url          string
	forceRefresh bool

	location string
	flatten  bool

	silentlyDestroyData bool
	quiet               bool
	gcal                bool
	gsecrets            string
	gtoken              string
	googleCSV           string
	ical                string

	watch bool
	debug bool
}

func main() {
	flags := parseFlags()

	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	applyOverrides(conf, flags)

	src := feed.NewSource(conf.Datasource, conf.URL)
	window, err := parseWindow(conf)
	if err != nil {
		appLog.Error("invalid feed window in config", err)
		os.Exit(1)
	}
	src.Window = window

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.watch {
		if err := runWatch(ctx, src, conf, flags); err != nil {
			appLog.Error("watch mode failed", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, src, conf, flags); err != nil {
		appLog.Error("export failed", err)
		os.Exit(1)
	}
}

// run executes one fetch-group-export cycle.
func run(ctx context.Context, src *feed.Source, conf *config.Config, flags flagConfig) error {
	if flags.forceRefresh {
		if err := src.Refresh(ctx); err != nil {
			return err
		}
	}

	cals, err := src.Calendars(ctx, flags.location)
	if err != nil {
		return err
	}
	if len(cals) == 0 {
		fmt.Println("No events")
		return nil
	}

	writers, err := buildWriters(ctx, conf, flags)
	if err != nil {
		return err
	}
	for _, w := range writers {
		if err := w.Write(ctx, cals, flags.flatten); err != nil {
			return err
		}
	}
	return nil
}

// runWatch re-runs the export pipeline on the configured cron schedule
// until the context is canceled. Watch mode is non-interactive, so
// destructive overwrites are performed without prompting.
func runWatch(ctx context.Context, src *feed.Source, conf *config.Config, flags flagConfig) error {
	flags.silentlyDestroyData = true
	flags.forceRefresh = true

	appLog.Info("watch mode starting", "cron", conf.RefreshCron)

	c := cron.New()
	_, err := c.AddFunc(conf.RefreshCron, func() {
		if err := run(ctx, src, conf, flags); err != nil {
			appLog.Error("scheduled export failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("bad refresh schedule %q: %w", conf.RefreshCron, err)
	}

	c.Start()
	<-ctx.Done()

	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(5 * time.Second):
		appLog.Warn("gave up waiting for running export to finish")
	}
	return nil
}

// buildWriters assembles the selected output backends. They all share one
// terminal confirmer so destructive prompts go to the same stream.
func buildWriters(ctx context.Context, conf *config.Config, flags flagConfig) ([]writer.Writer, error) {
	confirm := prompt.NewTerminal()

	var writers []writer.Writer
	if !flags.quiet {
		writers = append(writers, writer.NewStdoutWriter())
	}

	if flags.gcal {
		svc, err := gcal.NewService(ctx, conf.GoogleSecrets, conf.GoogleToken)
		if err != nil {
			return nil, fmt.Errorf("google calendar setup: %w", err)
		}
		writers = append(writers, &writer.GCalWriter{
			Service:             svc,
			SilentlyDestroyData: flags.silentlyDestroyData,
			Confirm:             confirm,
		})
	}

	if flags.googleCSV != "" {
		writers = append(writers, &writer.FileWriter{
			Output:              config.ExpandHome(flags.googleCSV),
			SilentlyDestroyData: flags.silentlyDestroyData,
			Confirm:             confirm,
			Format:              writer.CSVFormat{},
		})
	}

	if flags.ical != "" {
		writers = append(writers, &writer.FileWriter{
			Output:              config.ExpandHome(flags.ical),
			SilentlyDestroyData: flags.silentlyDestroyData,
			Confirm:             confirm,
			Format:              writer.ICalFormat{},
		})
	}

	return writers, nil
}

func applyOverrides(conf *config.Config, flags flagConfig) {
	if flags.datasource != "" {
		conf.Datasource = config.ExpandHome(flags.datasource)
	}
	if flags.url != "" {
		conf.URL = flags.url
	}
	if flags.gsecrets != "" {
		conf.GoogleSecrets = config.ExpandHome(flags.gsecrets)
	}
	if flags.gtoken != "" {
		conf.GoogleToken = config.ExpandHome(flags.gtoken)
	}
}

func parseWindow(conf *config.Config) (feed.Window, error) {
	const layout = "2006-01-02"
	start, err := time.Parse(layout, conf.WindowStart)
	if err != nil {
		return feed.Window{}, fmt.Errorf("window_start: %w", err)
	}
	end, err := time.Parse(layout, conf.WindowEnd)
	if err != nil {
		return feed.Window{}, fmt.Errorf("window_end: %w", err)
	}
	return feed.Window{Start: start, End: end}, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.ExpandHome("~/.config/umscal/config.yaml"), "Path to config file")

	flag.StringVar(&cfg.datasource, "datasource", "", "Local cache file for the feed (overrides config)")
	flag.StringVar(&cfg.url, "url", "", "Remote feed URL (overrides config)")
	flag.BoolVar(&cfg.forceRefresh, "force-refresh", false, "Re-fetch the feed and overwrite the cache file")

	flag.StringVar(&cfg.location, "location", event.VenueAll, "Venue to filter by (default: all venues)")
	flag.BoolVar(&cfg.flatten, "flatten", false, "Merge all venues into one calendar instead of one per venue")

	flag.BoolVar(&cfg.silentlyDestroyData, "silently-destroy-data", false, "Overwrite or delete conflicting output data without prompting")
	flag.BoolVar(&cfg.quiet, "quiet", false, "Do not print the events found")
	flag.BoolVar(&cfg.gcal, "gcal", false, "Import into Google Calendar, one calendar per venue (requires API setup)")
	flag.StringVar(&cfg.gsecrets, "gsecrets", "", "Google OAuth client secrets file (overrides config)")
	flag.StringVar(&cfg.gtoken, "gtoken", "", "Google OAuth token file (overrides config)")
	flag.StringVar(&cfg.googleCSV, "googlecsv", "", "Export CSV files under this directory (single file with -flatten)")
	flag.StringVar(&cfg.ical, "ical", "", "Export iCal files under this directory (single file with -flatten)")

	flag.BoolVar(&cfg.watch, "watch", false, "Keep running, re-exporting on the configured cron schedule")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
