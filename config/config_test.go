package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/onnwee/onett-watch/watch"
)

var knobs = []string{
	"CATALOG_FILE", "POLL_INTERVAL", "NOTIFY_POLICY", "GROUP_COUNT_BASELINE", "TIMEZONE",
	"DISCORD_WEBHOOK_URL", "DISCORD_EMBEDS", "TWITCH_CHANNEL", "TWITCH_BOT_USERNAME", "TWITCH_OAUTH_TOKEN",
	"ROBLOX_HTTP_TIMEOUT", "ROBLOX_REQUESTS_PER_SECOND", "ROBLOX_MEMBER_PAGES", "QUERY_CONCURRENCY", "DB_DSN", "HTTP_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range knobs {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PollInterval != time.Minute || cfg.RobloxTimeout != 10*time.Second {
		t.Errorf("durations = %v %v", cfg.PollInterval, cfg.RobloxTimeout)
	}
	if cfg.Policy != watch.PolicyEveryChange || cfg.Baseline != watch.BaselineFollow {
		t.Errorf("policy = %v baseline = %v", cfg.Policy, cfg.Baseline)
	}
	if cfg.Location.String() != DefaultTimezone {
		t.Errorf("location = %v", cfg.Location)
	}
	if cfg.RobloxRequestsPerSecond != 4 || cfg.RobloxMemberPages != 10 || cfg.QueryConcurrency != 4 {
		t.Errorf("client knobs = %+v", cfg)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DBDsn != "" || cfg.TwitchOAuthToken != "" || cfg.DiscordEmbeds {
		t.Errorf("optional features = %+v", cfg)
	}
	if len(cfg.Catalog.Titles) == 0 || len(cfg.Catalog.Groups) == 0 {
		t.Errorf("expected built-in catalog, got %+v", cfg.Catalog)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("titles:\n  - id: 42\n    name: Answer\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CATALOG_FILE", path)
	t.Setenv("POLL_INTERVAL", "2m")
	t.Setenv("NOTIFY_POLICY", "first-of-day")
	t.Setenv("GROUP_COUNT_BASELINE", "peak")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DISCORD_EMBEDS", "1")
	t.Setenv("TWITCH_CHANNEL", "chan")
	t.Setenv("TWITCH_BOT_USERNAME", "bot")
	t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:token")
	t.Setenv("ROBLOX_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("QUERY_CONCURRENCY", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PollInterval != 2*time.Minute || cfg.Policy != watch.PolicyFirstOfDay || cfg.Baseline != watch.BaselinePeak {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Location != time.UTC && cfg.Location.String() != "UTC" {
		t.Errorf("location = %v", cfg.Location)
	}
	if !cfg.DiscordEmbeds || cfg.TwitchChannel != "chan" || cfg.TwitchBotUsername != "bot" || cfg.TwitchOAuthToken != "oauth:token" || cfg.RobloxRequestsPerSecond != 0.5 || cfg.QueryConcurrency != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Catalog.Titles) != 1 || cfg.Catalog.Titles[0].ID != 42 || len(cfg.Catalog.Groups) != 0 {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"POLL_INTERVAL", "soon"},
		{"POLL_INTERVAL", "-1s"},
		{"NOTIFY_POLICY", "sometimes"},
		{"GROUP_COUNT_BASELINE", "lowest"},
		{"TIMEZONE", "Mars/Olympus_Mons"},
		{"ROBLOX_REQUESTS_PER_SECOND", "0"},
		{"ROBLOX_MEMBER_PAGES", "many"},
		{"QUERY_CONCURRENCY", "-2"},
		{"CATALOG_FILE", "/nonexistent/catalog.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
