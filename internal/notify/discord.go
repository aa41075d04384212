package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	colorRed    = 0xE74C3C // network / http_status
	colorOrange = 0xE67E22 // business
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// SendLoadFailure sends a single failure as a Discord embed.
func (d *DiscordNotifier) SendLoadFailure(ctx context.Context, failure *FailurePayload) error {
	payload := discordWebhookPayload{
		Embeds: []discordEmbed{buildEmbed(failure)},
	}
	return d.post(ctx, payload)
}

func buildEmbed(f *FailurePayload) discordEmbed {
	embed := discordEmbed{
		Title:       fmt.Sprintf("Catalog load failed: %s", f.Title),
		Color:       kindColor(f.Kind),
		Description: f.Message,
		Fields: []discordEmbedField{
			{Name: "Tenant", Value: valueOrDash(f.TenantID), Inline: true},
			{Name: "Category", Value: valueOrDash(f.CategoryID), Inline: true},
			{Name: "Page", Value: fmt.Sprintf("%d", f.PageIndex), Inline: true},
			{Name: "Kind", Value: valueOrDash(f.Kind), Inline: true},
			{Name: "Session", Value: valueOrDash(f.SessionID), Inline: true},
		},
	}

	if f.Detail != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Detail", Value: f.Detail})
	}

	if !f.OccurredAt.IsZero() {
		embed.Timestamp = f.OccurredAt.UTC().Format(time.RFC3339)
	}

	return embed
}

func kindColor(kind string) int {
	if kind == "business" {
		return colorOrange
	}
	return colorRed
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
