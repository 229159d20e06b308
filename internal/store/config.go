package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	BackendCSV    = "CSV"
	BackendSQLite = "SQLITE"
)

type Config struct {
	Timezone string `yaml:"timezone"`
	Fills    struct {
		SourceTimezone   string   `yaml:"source_timezone"`
		TimestampLayouts []string `yaml:"timestamp_layouts"`
		Symbols          []string `yaml:"symbols"`
	} `yaml:"fills"`
	Contracts struct {
		DefaultMultiplier float64            `yaml:"default_multiplier"`
		Multipliers       map[string]float64 `yaml:"multipliers"`
	} `yaml:"contracts"`
	Ledger struct {
		Backend     string `yaml:"backend"`
		Path        string `yaml:"path"`
		SnapshotDir string `yaml:"snapshot_dir"`
	} `yaml:"ledger"`
	Inbox struct {
		Dir        string `yaml:"dir"`
		ArchiveDir string `yaml:"archive_dir"`
	} `yaml:"inbox"`
	Matcher struct {
		Workers int `yaml:"workers"`
	} `yaml:"matcher"`
	RunLog struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"runlog"`
}

// Location resolves the ledger timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SourceLocation is the zone the broker's naive fill timestamps are written in.
func (c *Config) SourceLocation() *time.Location {
	loc, err := time.LoadLocation(c.Fills.SourceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	if _, err := time.LoadLocation(c.Fills.SourceTimezone); err != nil {
		return fmt.Errorf("invalid fills.source_timezone '%s': %w", c.Fills.SourceTimezone, err)
	}
	if len(c.Fills.TimestampLayouts) == 0 {
		return errors.New("fills.timestamp_layouts cannot be empty")
	}
	if c.Contracts.DefaultMultiplier <= 0 {
		return fmt.Errorf("contracts.default_multiplier must be positive, got %.2f", c.Contracts.DefaultMultiplier)
	}
	for sym, m := range c.Contracts.Multipliers {
		if m <= 0 {
			return fmt.Errorf("contracts.multipliers[%s] must be positive, got %.2f", sym, m)
		}
	}
	if c.Ledger.Backend != BackendCSV && c.Ledger.Backend != BackendSQLite {
		return fmt.Errorf("invalid ledger.backend '%s': must be 'CSV' or 'SQLITE'", c.Ledger.Backend)
	}
	if c.Ledger.Path == "" {
		return errors.New("ledger.path cannot be empty")
	}
	if c.Matcher.Workers < 1 {
		return fmt.Errorf("matcher.workers must be at least 1, got %d", c.Matcher.Workers)
	}
	if c.RunLog.RetentionDays < 0 {
		return fmt.Errorf("runlog.retention_days cannot be negative, got %d", c.RunLog.RetentionDays)
	}
	return nil
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "US/Central"
	}
	if c.Fills.SourceTimezone == "" {
		c.Fills.SourceTimezone = "America/New_York"
	}
	if len(c.Fills.TimestampLayouts) == 0 {
		c.Fills.TimestampLayouts = []string{"20060102;150405"}
	}
	if c.Contracts.DefaultMultiplier == 0 {
		c.Contracts.DefaultMultiplier = 5
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = BackendCSV
	}
	c.Ledger.Backend = strings.ToUpper(c.Ledger.Backend)
	if c.Ledger.Path == "" {
		if c.Ledger.Backend == BackendSQLite {
			c.Ledger.Path = "data/performance/ledger.db"
		} else {
			c.Ledger.Path = "data/performance/Combined_performance_for_dash_project.csv"
		}
	}
	if c.Inbox.Dir == "" {
		c.Inbox.Dir = "data/temp_performance"
	}
	if c.Matcher.Workers == 0 {
		c.Matcher.Workers = 1
	}
	if c.RunLog.Dir == "" {
		c.RunLog.Dir = "logs"
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	// LEDGER_PATH lets a job point the same config at another ledger.
	if v := os.Getenv("LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
