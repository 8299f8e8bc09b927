// Package config loads the CLI configuration: global settings plus named
// profiles, one per Garmin account / destination pair.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	State    StateConfig        `yaml:"state"`
	Google   GoogleConfig       `yaml:"google"`
	Profiles map[string]Profile `yaml:"profiles"`
}

type StateConfig struct {
	// Dir holds the token store and run history. Defaults to ~/.daysync.
	Dir string `yaml:"dir"`
	// MigrationsDir holds the SQL migrations for the state database.
	// Defaults to ./migrations.
	MigrationsDir string `yaml:"migrations_dir"`
}

type GoogleConfig struct {
	// CredentialsPath points at the installed-app client secret JSON file.
	CredentialsPath string `yaml:"credentials_path"`
}

// Profile pairs one Garmin account with one destination store. Exactly one of
// the destination fields needs to be set for the output mode chosen at run
// time.
type Profile struct {
	GarminEmail    string `yaml:"garmin_email"`
	GarminPassword string `yaml:"garmin_password"`

	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name"`

	CSVPath string `yaml:"csv_path"`

	PostgresDSN string `yaml:"postgres_dsn"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides:
//
//	DAYSYNC_STATE_DIR, DAYSYNC_GOOGLE_CREDENTIALS
//
// Credential overrides (DAYSYNC_GARMIN_EMAIL, DAYSYNC_GARMIN_PASSWORD) are
// applied per profile by Profile.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Profile returns the named profile with credential env overrides applied.
func (c *Config) Profile(name string) (Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found in config", name)
	}
	if v := os.Getenv("DAYSYNC_GARMIN_EMAIL"); v != "" {
		p.GarminEmail = v
	}
	if v := os.Getenv("DAYSYNC_GARMIN_PASSWORD"); v != "" {
		p.GarminPassword = v
	}
	if p.SheetName == "" {
		p.SheetName = "Raw Data"
	}
	return p, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DAYSYNC_STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv("DAYSYNC_GOOGLE_CREDENTIALS"); v != "" {
		cfg.Google.CredentialsPath = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.State.Dir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.State.Dir = filepath.Join(home, ".daysync")
		} else {
			cfg.State.Dir = ".daysync"
		}
	}
	if cfg.State.MigrationsDir == "" {
		cfg.State.MigrationsDir = "migrations"
	}
}

func (c *Config) validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}
	for name, p := range c.Profiles {
		if p.SpreadsheetID == "" && p.CSVPath == "" && p.PostgresDSN == "" {
			return fmt.Errorf("profile %q has no destination configured", name)
		}
	}
	return nil
}
