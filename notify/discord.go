package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/onnwee/onett-watch/watch"
)

// embedColor is the accent used for card-style posts.
const embedColor = 0x00a2ff

// Discord posts events to an incoming webhook.
type Discord struct {
	WebhookURL string
	// Embeds posts title+body cards instead of plain content.
	Embeds   bool
	Renderer Renderer
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

// Name identifies the sink in logs and metrics.
func (d *Discord) Name() string { return "discord" }

// Notify renders ev and posts it. Any non-2xx answer is a DeliveryError.
func (d *Discord) Notify(ctx context.Context, ev watch.Event) error {
	msg := d.Renderer.Render(ev)
	var payload discordPayload
	if d.Embeds {
		emb := discordEmbed{Title: msg.Title, Description: msg.Body, Color: embedColor}
		if !ev.DetectedAt.IsZero() {
			emb.Timestamp = ev.DetectedAt.UTC().Format(time.RFC3339)
		}
		payload.Embeds = []discordEmbed{emb}
	} else {
		payload.Content = msg.Text()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Sink: d.Name(), Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Sink: d.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return &DeliveryError{Sink: d.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{Sink: d.Name(), StatusCode: resp.StatusCode, Err: errors.New(string(bytes.TrimSpace(snippet)))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
