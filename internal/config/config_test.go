package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
state:
  dir: /tmp/daysync-test
google:
  credentials_path: /tmp/client_secret.json
profiles:
  default:
    garmin_email: me@example.com
    garmin_password: secret
    spreadsheet_id: sheet-123
  local:
    garmin_email: me@example.com
    garmin_password: secret
    csv_path: /tmp/metrics.csv
    sheet_name: Custom Tab
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.State.Dir != "/tmp/daysync-test" {
		t.Errorf("state dir = %q", cfg.State.Dir)
	}
	if cfg.State.MigrationsDir != "migrations" {
		t.Errorf("migrations dir = %q, want default", cfg.State.MigrationsDir)
	}
	if len(cfg.Profiles) != 2 {
		t.Errorf("profiles = %d, want 2", len(cfg.Profiles))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no profiles", "google:\n  credentials_path: /x\n"},
		{"profile without destination", `
profiles:
  default:
    garmin_email: me@example.com
    garmin_password: secret
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load succeeded, want validation error")
			}
		})
	}
}

func TestProfile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p, err := cfg.Profile("default")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.SheetName != "Raw Data" {
		t.Errorf("sheet name = %q, want default Raw Data", p.SheetName)
	}

	p, err = cfg.Profile("local")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.SheetName != "Custom Tab" {
		t.Errorf("sheet name = %q, want Custom Tab", p.SheetName)
	}

	if _, err := cfg.Profile("missing"); err == nil {
		t.Error("unknown profile succeeded, want error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DAYSYNC_STATE_DIR", "/env/state")
	t.Setenv("DAYSYNC_GOOGLE_CREDENTIALS", "/env/creds.json")
	t.Setenv("DAYSYNC_GARMIN_EMAIL", "env@example.com")
	t.Setenv("DAYSYNC_GARMIN_PASSWORD", "env-secret")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.State.Dir != "/env/state" {
		t.Errorf("state dir = %q, want env override", cfg.State.Dir)
	}
	if cfg.Google.CredentialsPath != "/env/creds.json" {
		t.Errorf("credentials path = %q, want env override", cfg.Google.CredentialsPath)
	}

	p, err := cfg.Profile("default")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.GarminEmail != "env@example.com" || p.GarminPassword != "env-secret" {
		t.Errorf("credentials = %q/%q, want env overrides", p.GarminEmail, p.GarminPassword)
	}
}
