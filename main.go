// Command onett-watch polls Roblox titles and groups for changes and announces
// them. It:
//   - Loads configuration and initializes structured logging.
//   - Runs the poll scheduler over the resource catalog.
//   - Delivers change notifications to Discord, Twitch chat, the log and,
//     when DB_DSN is set, the Postgres change-event history.
//   - Exposes /healthz, /readyz, /metrics, /status, /titles, /groups and /events.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/onett-watch/chat"
	"github.com/onnwee/onett-watch/config"
	"github.com/onnwee/onett-watch/db"
	"github.com/onnwee/onett-watch/notify"
	"github.com/onnwee/onett-watch/robloxapi"
	"github.com/onnwee/onett-watch/server"
	"github.com/onnwee/onett-watch/telemetry"
	"github.com/onnwee/onett-watch/watch"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdownTracing, err := telemetry.InitTracing("onett-watch", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resources := cfg.Catalog.All()
	client := robloxapi.NewClient(robloxapi.Options{
		Timeout:           cfg.RobloxTimeout,
		RequestsPerSecond: cfg.RobloxRequestsPerSecond,
		MaxMemberPages:    cfg.RobloxMemberPages,
	})
	days := watch.NewDayTracker(cfg.Location, time.Now())
	store := watch.NewStore(resources, days.Today())
	query := &watch.Query{Resources: resources, Fetcher: client, Store: store, Days: days, Concurrency: cfg.QueryConcurrency}
	renderer := notify.Renderer{Location: cfg.Location}

	sinks := notify.Multi{&notify.Log{Renderer: renderer}}
	if cfg.DiscordWebhookURL != "" {
		sinks = append(sinks, &notify.Discord{WebhookURL: cfg.DiscordWebhookURL, Embeds: cfg.DiscordEmbeds, Renderer: renderer})
	}

	var wg sync.WaitGroup
	bot := &chat.Bot{
		Channel:  cfg.TwitchChannel,
		Username: cfg.TwitchBotUsername,
		Token:    cfg.TwitchOAuthToken,
		Query:    query,
		Renderer: renderer,
	}
	if bot.Enabled() {
		sinks = append(sinks, bot)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bot.Run(ctx); err != nil {
				slog.Error("twitch chat exited with error", slog.Any("err", err), slog.String("component", "chat"))
			}
		}()
	} else {
		slog.Info("twitch chat disabled (missing TWITCH_CHANNEL, TWITCH_BOT_USERNAME or TWITCH_OAUTH_TOKEN)")
	}

	var history server.History
	if cfg.DBDsn != "" {
		database, err := db.Connect(ctx, cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.RunMigrations(database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		eventLog := &db.EventLog{DB: database}
		sinks = append(sinks, eventLog)
		history = eventLog
	}
	slog.Info("notification sinks configured", slog.Any("sinks", sinks.Names()))

	poller := &watch.Poller{
		Resources: resources,
		Fetcher:   client,
		Store:     store,
		Days:      days,
		Engine:    watch.Engine{Policy: cfg.Policy, Baseline: cfg.Baseline},
		Notifier:  sinks,
		Interval:  cfg.PollInterval,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	mux := server.NewMux(server.Deps{
		Store:       store,
		Days:        days,
		Reports:     query,
		History:     history,
		LastTick:    poller.LastTick,
		BreakerOpen: client.BreakerOpen,
		Interval:    cfg.PollInterval,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx, cfg.HTTPAddr, mux); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
			stop()
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
	wg.Wait()
}
