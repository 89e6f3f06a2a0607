package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/monocle-dev/monocle/internal/types"
)

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp"`
	Footer      *DiscordFooter `json:"footer,omitempty"`
}

type DiscordWebhookRequest struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

// WebhookRequest is the generic webhook body.
type WebhookRequest struct {
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  types.Priority `json:"priority"`
	Timestamp string         `json:"timestamp"`
	Type      string         `json:"type"`
}

const (
	ColorRed    = 16711680 // #FF0000 - critical
	ColorOrange = 16753920 // #FFA500 - high
	ColorGreen  = 65280    // #00FF00 - medium
	ColorGray   = 8421504  // #808080 - low

	Username  = "Monocle Monitor"
	AvatarURL = "https://avatars.githubusercontent.com/u/219688397"
	Footer    = "Monocle Monitoring"

	WebhookType = "monitor_alert"
)

func DiscordColor(p types.Priority) int {
	switch p {
	case types.PriorityCritical:
		return ColorRed
	case types.PriorityHigh:
		return ColorOrange
	case types.PriorityMedium:
		return ColorGreen
	default:
		return ColorGray
	}
}

func SlackColor(p types.Priority) string {
	switch p {
	case types.PriorityCritical:
		return "#FF0000"
	case types.PriorityHigh:
		return "#FFA500"
	case types.PriorityMedium:
		return "#36A64F"
	default:
		return "#808080"
	}
}

func SlackPayload(msg Message) SlackWebhookRequest {
	return SlackWebhookRequest{
		Username: Username,
		Text:     fmt.Sprintf("*%s*\n%s", msg.Title, msg.Body),
		Attachments: []SlackAttachment{
			{
				Color:     SlackColor(msg.Priority),
				Fields:    []SlackField{{Title: msg.Title, Value: msg.Body}},
				Footer:    Footer,
				Timestamp: msg.Timestamp.Unix(),
			},
		},
	}
}

func DiscordPayload(msg Message) DiscordWebhookRequest {
	return DiscordWebhookRequest{
		Username:  Username,
		AvatarURL: AvatarURL,
		Embeds: []DiscordEmbed{
			{
				Title:       msg.Title,
				Description: msg.Body,
				Color:       DiscordColor(msg.Priority),
				Timestamp:   msg.Timestamp.Format(time.RFC3339),
				Footer:      &DiscordFooter{Text: Footer},
			},
		},
	}
}

func WebhookPayload(msg Message) WebhookRequest {
	return WebhookRequest{
		Title:     msg.Title,
		Message:   msg.Body,
		Priority:  msg.Priority,
		Timestamp: msg.Timestamp.Format(time.RFC3339),
		Type:      WebhookType,
	}
}

type SlackSender struct {
	client *http.Client
	url    string
}

func (s *SlackSender) Type() types.ChannelType { return types.ChannelSlack }

func (s *SlackSender) Deliver(ctx context.Context, msg Message) error {
	return deliverJSON(ctx, s.client, "Slack", s.url, SlackPayload(msg))
}

type DiscordSender struct {
	client *http.Client
	url    string
}

func (s *DiscordSender) Type() types.ChannelType { return types.ChannelDiscord }

func (s *DiscordSender) Deliver(ctx context.Context, msg Message) error {
	return deliverJSON(ctx, s.client, "Discord", s.url, DiscordPayload(msg))
}

type WebhookSender struct {
	client *http.Client
	url    string
}

func (s *WebhookSender) Type() types.ChannelType { return types.ChannelWebhook }

func (s *WebhookSender) Deliver(ctx context.Context, msg Message) error {
	return deliverJSON(ctx, s.client, "webhook", s.url, WebhookPayload(msg))
}

// deliverJSON treats only 2xx as delivered. postJSON already fails on 5xx;
// a 4xx comes back as a plain status and is rejected here.
func deliverJSON(ctx context.Context, client *http.Client, kind, url string, payload interface{}) error {
	status, err := postJSON(ctx, client, url, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}

	if status < 200 || status >= 300 {
		return fmt.Errorf("%s webhook returned status %d", kind, status)
	}

	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp.StatusCode, nil
}
