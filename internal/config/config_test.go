package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Logging.Level != "info" {
		t.Errorf("logging level = %q", cfg.Logging.Level)
	}
	if cfg.Pipeline.Timeout.Std() != 2*time.Minute {
		t.Errorf("pipeline timeout = %v", cfg.Pipeline.Timeout.Std())
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("workers = %d", cfg.Pipeline.Workers)
	}
	if cfg.Breaker.FailureThreshold != 5 {
		t.Errorf("failure threshold = %d", cfg.Breaker.FailureThreshold)
	}
	if cfg.Breaker.Cooldown.Std() != 30*time.Second {
		t.Errorf("cooldown = %v", cfg.Breaker.Cooldown.Std())
	}
	if len(cfg.Providers) != 4 {
		t.Fatalf("providers = %d, want 4", len(cfg.Providers))
	}
	if cfg.Providers[0].Name != "moonshot" {
		t.Errorf("first provider = %q", cfg.Providers[0].Name)
	}
	want := []string{"moonshot", "grok", "deepseek", "openai"}
	got := cfg.Routing["enrichment"]
	if len(got) != len(want) {
		t.Fatalf("enrichment route = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("enrichment route[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(cfg.Feeds) == 0 {
		t.Error("default feeds missing")
	}
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Errorf("scheduler location = %s", cfg.Scheduler.Location())
	}
}

func TestLoadMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
logging:
  level: debug
scheduler:
  interval: 5m
pipeline:
  timeout: 45s
  workers: 8
  disabledStages: [regional_trend]
breaker:
  failureThreshold: 3
  cooldown: 90s
geocoding:
  endpoint: https://geo.internal
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTINEL_CONFIG", path)

	cfg := Load()

	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if cfg.Scheduler.Interval.Std() != 5*time.Minute {
		t.Errorf("interval = %v", cfg.Scheduler.Interval.Std())
	}
	if cfg.Pipeline.Timeout.Std() != 45*time.Second {
		t.Errorf("timeout = %v", cfg.Pipeline.Timeout.Std())
	}
	if cfg.Pipeline.Workers != 8 {
		t.Errorf("workers = %d", cfg.Pipeline.Workers)
	}
	if len(cfg.Pipeline.DisabledStages) != 1 || cfg.Pipeline.DisabledStages[0] != "regional_trend" {
		t.Errorf("disabled stages = %v", cfg.Pipeline.DisabledStages)
	}
	if cfg.Breaker.FailureThreshold != 3 {
		t.Errorf("failure threshold = %d", cfg.Breaker.FailureThreshold)
	}
	if cfg.Breaker.Cooldown.Std() != 90*time.Second {
		t.Errorf("cooldown = %v", cfg.Breaker.Cooldown.Std())
	}
	if cfg.Geocoding.Endpoint != "https://geo.internal" {
		t.Errorf("geocoding endpoint = %q", cfg.Geocoding.Endpoint)
	}

	// Untouched sections keep their defaults.
	if cfg.Pipeline.SummaryMaxChars != 600 {
		t.Errorf("summary max chars = %d", cfg.Pipeline.SummaryMaxChars)
	}
	if len(cfg.Providers) != 4 {
		t.Errorf("providers = %d", len(cfg.Providers))
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://env/sentinel")
	t.Setenv("SENTINEL_LOG_LEVEL", "warn")
	t.Setenv("MOONSHOT_API_KEY", "mk-123")
	t.Setenv("GEOCODER_API_KEY", "geo-456")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-token")
	t.Setenv("TELEGRAM_CHAT_ID", "chat-1")
	t.Setenv("SENTINEL_LEGACY_FALLBACK", "false")

	cfg := Load()

	if cfg.Database.DSN != "postgres://env/sentinel" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if cfg.Geocoding.APIKey != "geo-456" {
		t.Errorf("geocoder key = %q", cfg.Geocoding.APIKey)
	}
	if cfg.Notifications.Telegram.BotToken != "tg-token" || cfg.Notifications.Telegram.ChatID != "chat-1" {
		t.Errorf("telegram = %+v", cfg.Notifications.Telegram)
	}
	if cfg.Pipeline.LegacyFallbackEnabled() {
		t.Error("legacy fallback should be disabled via env")
	}

	for _, p := range cfg.Providers {
		if p.Name == "moonshot" && p.APIKey != "mk-123" {
			t.Errorf("moonshot key = %q", p.APIKey)
		}
	}
}

func TestLegacyFallbackDisabledByFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "pipeline:\n  legacyFallback: false\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTINEL_CONFIG", path)

	cfg := Load()
	if cfg.Pipeline.LegacyFallbackEnabled() {
		t.Error("an explicit legacyFallback: false must override the default true")
	}

	if !defaultConfig().Pipeline.LegacyFallbackEnabled() {
		t.Error("the default stays enabled")
	}
}

func TestLoadBadFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTINEL_CONFIG", path)

	cfg := Load()
	if cfg.Logging.Level != "info" {
		t.Errorf("level = %q, want default", cfg.Logging.Level)
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var out struct {
		Window Duration `yaml:"window"`
	}
	if err := yaml.Unmarshal([]byte("window: 90s"), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Window.Std() != 90*time.Second {
		t.Errorf("window = %v", out.Window.Std())
	}

	if err := yaml.Unmarshal([]byte("window: nonsense"), &out); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestUnknownTimezoneRevertsToUTC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "scheduler:\n  timezone: Not/AZone\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTINEL_CONFIG", path)

	cfg := Load()
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Errorf("location = %s", cfg.Scheduler.Location())
	}
}
