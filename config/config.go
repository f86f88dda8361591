// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with no setup beyond
// network access. Invalid values fail Load instead of being silently replaced.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal containers

	"github.com/onnwee/onett-watch/catalog"
	"github.com/onnwee/onett-watch/watch"
)

const DefaultTimezone = "America/Chicago"

type Config struct {
	// Watcher
	Catalog      *catalog.Catalog
	CatalogFile  string
	PollInterval time.Duration
	Policy       watch.Policy
	Baseline     watch.CountBaseline
	Location     *time.Location

	// Discord
	DiscordWebhookURL string
	DiscordEmbeds     bool

	// Twitch chat
	TwitchChannel     string
	TwitchBotUsername string
	TwitchOAuthToken  string

	// Roblox client
	RobloxTimeout           time.Duration
	RobloxRequestsPerSecond float64
	RobloxMemberPages       int
	QueryConcurrency        int

	// Database (empty disables the change-event history)
	DBDsn string

	HTTPAddr string
}

// Load reads environment variables and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		CatalogFile:       os.Getenv("CATALOG_FILE"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		DiscordEmbeds:     os.Getenv("DISCORD_EMBEDS") == "1",
		TwitchChannel:     os.Getenv("TWITCH_CHANNEL"),
		TwitchBotUsername: os.Getenv("TWITCH_BOT_USERNAME"),
		TwitchOAuthToken:  os.Getenv("TWITCH_OAUTH_TOKEN"),
		DBDsn:             os.Getenv("DB_DSN"),
		HTTPAddr:          envOr("HTTP_ADDR", ":8080"),
	}

	var err error
	if cfg.Catalog, err = catalog.Load(cfg.CatalogFile); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = duration("POLL_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.RobloxTimeout, err = duration("ROBLOX_HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Policy, err = watch.ParsePolicy(os.Getenv("NOTIFY_POLICY")); err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_POLICY: %w", err)
	}
	if cfg.Baseline, err = watch.ParseCountBaseline(os.Getenv("GROUP_COUNT_BASELINE")); err != nil {
		return nil, fmt.Errorf("invalid GROUP_COUNT_BASELINE: %w", err)
	}
	tz := envOr("TIMEZONE", DefaultTimezone)
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	if v := os.Getenv("ROBLOX_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid ROBLOX_REQUESTS_PER_SECOND %q", v)
		}
		cfg.RobloxRequestsPerSecond = f
	} else {
		cfg.RobloxRequestsPerSecond = 4
	}
	if cfg.RobloxMemberPages, err = positiveInt("ROBLOX_MEMBER_PAGES", 10); err != nil {
		return nil, err
	}
	if cfg.QueryConcurrency, err = positiveInt("QUERY_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func positiveInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive integer", key, v)
	}
	return n, nil
}
