package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/onett-watch/notify"
	"github.com/onnwee/onett-watch/watch"
)

// Twitch rejects longer chat lines.
const maxMessageLen = 500

const (
	CommandUpdates = "!checkupdates"
	CommandGroups  = "!checkgroups"
)

// Querier produces the report lines for the chat commands. *watch.Query implements it.
type Querier interface {
	Titles(ctx context.Context) []string
	Groups(ctx context.Context) []string
}

// Bot is both a notification sink and the command surface.
type Bot struct {
	Channel  string
	Username string
	Token    string
	Query    Querier
	Renderer notify.Renderer
	// QueryTimeout bounds one command's fetches. Defaults to 30s.
	QueryTimeout time.Duration

	connected atomic.Bool
	mu        sync.Mutex
	ctx       context.Context
	say       func(channel, text string)
}

// Enabled reports whether enough credentials are present to connect.
func (b *Bot) Enabled() bool {
	return b.Channel != "" && b.Username != "" && b.Token != ""
}

func (b *Bot) Name() string { return "twitch_chat" }

// Notify posts the rendered event to the channel.
func (b *Bot) Notify(ctx context.Context, ev watch.Event) error {
	if !b.connected.Load() {
		return &notify.DeliveryError{Sink: b.Name(), Err: errors.New("not connected")}
	}
	b.send(b.Renderer.Render(ev).Text())
	return nil
}

// Run connects and blocks until ctx is canceled or the connection fails.
func (b *Bot) Run(ctx context.Context) error {
	log := slog.With(slog.String("component", "chat"), slog.String("channel", b.Channel))
	client := twitch.NewClient(b.Username, b.Token)

	b.mu.Lock()
	b.ctx = ctx
	b.say = client.Say
	b.mu.Unlock()

	client.OnConnect(func() {
		b.connected.Store(true)
		log.Info("connected to twitch chat")
	})
	client.OnPrivateMessage(b.handle)
	client.Join(b.Channel)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = client.Disconnect()
		case <-done:
		}
	}()

	err := client.Connect()
	b.connected.Store(false)
	if errors.Is(err, twitch.ErrClientDisconnected) || ctx.Err() != nil {
		log.Info("twitch chat disconnected")
		return nil
	}
	return err
}

func (b *Bot) handle(msg twitch.PrivateMessage) {
	fields := strings.Fields(msg.Message)
	if len(fields) == 0 {
		return
	}
	var report func(context.Context) []string
	switch strings.ToLower(fields[0]) {
	case CommandUpdates:
		report = b.Query.Titles
	case CommandGroups:
		report = b.Query.Groups
	default:
		return
	}
	slog.Debug("chat command", slog.String("user", msg.User.Name), slog.String("command", fields[0]), slog.String("component", "chat"))

	b.mu.Lock()
	parent := b.ctx
	b.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}
	timeout := b.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	for _, line := range report(ctx) {
		b.send(line)
	}
}

func (b *Bot) send(text string) {
	b.mu.Lock()
	say := b.say
	b.mu.Unlock()
	if say == nil {
		return
	}
	say(b.Channel, sanitize(text))
}

// sanitize flattens markdown and newlines into a single IRC line.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }), " | ")
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
