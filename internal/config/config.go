package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration. Every field can be
// overridden by a CLI flag.
type Config struct {
	// Datasource is the local cache file for the fetched feed payload.
	Datasource string `yaml:"datasource" json:"datasource"`

	// URL is the remote feed endpoint.
	URL string `yaml:"url" json:"url"`

	// WindowStart / WindowEnd bound the feed query, as YYYY-MM-DD dates.
	WindowStart string `yaml:"window_start" json:"window_start"`
	WindowEnd   string `yaml:"window_end" json:"window_end"`

	// GoogleSecrets is the OAuth client secrets file for the Google
	// Calendar API; GoogleToken is the cached OAuth token.
	GoogleSecrets string `yaml:"google_secrets" json:"google_secrets"`
	GoogleToken   string `yaml:"google_token" json:"google_token"`

	// RefreshCron is the cron-style schedule used by watch mode
	// (e.g. "*/15 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Datasource:    "events.json",
		URL:           "http://theums.com/myfeed/",
		WindowStart:   "2016-07-27",
		WindowEnd:     "2016-08-01",
		GoogleSecrets: "~/.credentials/gcal_client_secret.json",
		GoogleToken:   "~/.credentials/gcal_token.json",
		RefreshCron:   "*/15 * * * *",
	}
}

// Normalize fills in missing values with defaults so that partially-filled
// configs still behave correctly, and expands leading ~ in paths.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Datasource == "" {
		c.Datasource = def.Datasource
	}
	if c.URL == "" {
		c.URL = def.URL
	}
	if c.WindowStart == "" {
		c.WindowStart = def.WindowStart
	}
	if c.WindowEnd == "" {
		c.WindowEnd = def.WindowEnd
	}
	if c.GoogleSecrets == "" {
		c.GoogleSecrets = def.GoogleSecrets
	}
	if c.GoogleToken == "" {
		c.GoogleToken = def.GoogleToken
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}

	c.Datasource = ExpandHome(c.Datasource)
	c.GoogleSecrets = ExpandHome(c.GoogleSecrets)
	c.GoogleToken = ExpandHome(c.GoogleToken)
}

// ExpandHome replaces a leading ~ with the current user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: write a default config with 0600 perms
//     and return the defaults.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file. The file keeps ~ paths
			// as written; only the returned copy is expanded.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path, atomically via
// a temp file + rename, with final permissions 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".umscal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}
