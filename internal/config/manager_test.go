package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
logging:
  level: DEBUG
  console: true
  file:
    enabled: false
    path: ""
telegram:
  token: "123456:TEST"
  rate_per_sec: 5
queue:
  min_delay: 30s
  max_delay: 2m
  send_timeout: 20s
scheduler:
  tick_interval: 1m
  timezone: Asia/Jakarta
reminder:
  h15_schedule: daily 09:00
  h1_schedule: daily 09:30
  reset_schedule: midnight
  tolerance: 24h
storage:
  driver: sqlite
  path: ./kostbot.db
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Telegram.Token != "123456:TEST" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Queue.MinDelay != "30s" || cfg.Queue.MaxDelay != "2m" {
		t.Fatalf("queue delays = %q/%q", cfg.Queue.MinDelay, cfg.Queue.MaxDelay)
	}
	if cfg.Scheduler.Timezone != "Asia/Jakarta" {
		t.Fatalf("timezone = %q", cfg.Scheduler.Timezone)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get did not return the committed config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	body := strings.Replace(sampleYAML, "rate_per_sec: 5", "rate_per_sec: 5\n  typo_field: 1", 1)
	m := NewManager(writeConfig(t, "config.yaml", body))
	if _, err := m.Load(); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestValidateRejectsInvertedDelays(t *testing.T) {
	t.Parallel()

	body := strings.Replace(sampleYAML, "max_delay: 2m", "max_delay: 1s", 1)
	m := NewManager(writeConfig(t, "config.yaml", body))
	if _, err := m.Load(); err == nil || !strings.Contains(err.Error(), "max_delay") {
		t.Fatalf("expected max_delay validation error, got %v", err)
	}
}

func TestValidateRequiresToken(t *testing.T) {
	t.Parallel()

	body := strings.Replace(sampleYAML, `token: "123456:TEST"`, `token: ""`, 1)
	m := NewManager(writeConfig(t, "config.yaml", body))
	if _, err := m.Load(); err == nil || !strings.Contains(err.Error(), "telegram.token") {
		t.Fatalf("expected token validation error, got %v", err)
	}
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	body := strings.Replace(sampleYAML, "timezone: Asia/Jakarta", "timezone: Mars/Olympus", 1)
	m := NewManager(writeConfig(t, "config.yaml", body))
	if _, err := m.Load(); err == nil {
		t.Fatalf("expected timezone validation error")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationField("x", "90s"); err != nil || d.Seconds() != 90 {
		t.Fatalf("ParseDurationField(90s) = %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty duration should be zero: %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatalf("negative duration accepted")
	}
	if _, err := ParseDurationField("x", "fast"); err == nil {
		t.Fatalf("garbage duration accepted")
	}
}
