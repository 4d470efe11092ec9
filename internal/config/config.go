package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds credentials for the timetable host. The department
// site only challenges for these when accessed from outside the university
// network; leave the block out otherwise.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Host is the base URL of the timetable query pages.
	Host string `yaml:"host"`

	// TermDatesURL is the ICS feed the anchor resolver scans for the
	// "0th Week" term-start entries.
	TermDatesURL string `yaml:"term_dates_url"`

	// Timezone is the IANA name of the single civil timezone all events
	// are expressed in.
	Timezone string `yaml:"timezone"`

	// FilePrefix is the leading component of the output filename.
	FilePrefix string `yaml:"file_prefix"`

	// CacheDir is where fetched pages and feeds are cached on disk.
	CacheDir string `yaml:"cache_dir"`

	// ColumnOrder names the five table columns in on-page order. The
	// upstream layout has shifted between academic years; adjusting this
	// list beats forking the parser.
	ColumnOrder []string `yaml:"column_order"`

	// RefreshCron, if set, re-runs the pipeline on this cron schedule
	// instead of exiting after one pass.
	RefreshCron string `yaml:"refresh,omitempty"`

	// BasicAuth, if non-nil, is sent with every timetable request.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:         "https://www3.physics.ox.ac.uk/lectures2",
		TermDatesURL: "https://www.wolfson.ox.ac.uk/sites/default/files/inline-files/oxdate.ics",
		Timezone:     "Europe/London",
		FilePrefix:   "OxfPhysTimetable",
		CacheDir:     "./var/page-cache",
		ColumnOrder:  []string{"weekday", "week", "term", "time", "location"},
	}
}

// Normalize fills in missing/zero values so partially-filled configs from
// older versions still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.TermDatesURL == "" {
		c.TermDatesURL = def.TermDatesURL
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.FilePrefix == "" {
		c.FilePrefix = def.FilePrefix
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if len(c.ColumnOrder) != 5 {
		c.ColumnOrder = def.ColumnOrder
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (parent
// directory created as needed) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
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

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory if needed. The config can carry timetable
// credentials, hence the tight permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".lectical-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
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

	return os.Rename(tmpName, path)
}
