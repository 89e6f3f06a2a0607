package notify

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/monocle-dev/monocle/internal/metrics"
	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultDeliveryTimeout = 10 * time.Second

// Sender delivers a rendered message over one channel.
type Sender interface {
	Type() types.ChannelType
	Deliver(ctx context.Context, msg Message) error
}

// ChannelLister loads a user's notification channels.
type ChannelLister interface {
	ListChannels(ctx context.Context, userID string) ([]models.NotificationChannel, error)
}

// Outcome is the per-channel delivery record.
type Outcome struct {
	ChannelID string            `json:"channel_id"`
	Type      types.ChannelType `json:"type"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
}

type Dispatcher struct {
	channels  ChannelLister
	client    *http.Client
	mailer    Mailer
	timeout   time.Duration
	logger    *zap.SugaredLogger
	newSender func(models.NotificationChannel) (Sender, error)
}

// NewDispatcher builds a dispatcher. mailer may be nil, in which case every
// email channel fails with ErrEmailNotConfigured.
func NewDispatcher(channels ChannelLister, mailer Mailer, timeout time.Duration, logger *zap.SugaredLogger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}

	d := &Dispatcher{
		channels: channels,
		client:   &http.Client{},
		mailer:   mailer,
		timeout:  timeout,
		logger:   logger,
	}
	d.newSender = d.senderFor

	return d
}

func (d *Dispatcher) senderFor(ch models.NotificationChannel) (Sender, error) {
	switch ch.Type {
	case types.ChannelEmail:
		return &EmailSender{mailer: d.mailer, to: ch.Value}, nil
	case types.ChannelSlack:
		return &SlackSender{client: d.client, url: ch.Value}, nil
	case types.ChannelDiscord:
		return &DiscordSender{client: d.client, url: ch.Value}, nil
	case types.ChannelWebhook:
		return &WebhookSender{client: d.client, url: ch.Value}, nil
	default:
		return nil, fmt.Errorf("unsupported channel type: %s", ch.Type)
	}
}

// Dispatch delivers event to every channel of the user concurrently and
// returns one outcome per channel. Only a failure to list channels is an error.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) ([]Outcome, error) {
	channels, err := d.channels.ListChannels(ctx, event.UserID)
	if err != nil {
		return nil, fmt.Errorf("list notification channels: %w", err)
	}

	outcomes := make([]Outcome, len(channels))

	if len(channels) == 0 {
		d.logger.Debugw("No notification channels configured", "user_id", event.UserID, "event", event.Kind)
		return outcomes, nil
	}

	msg := Render(event)

	// No WithContext: a failed delivery must not cancel its siblings.
	var g errgroup.Group

	for i, ch := range channels {
		g.Go(func() error {
			outcomes[i] = d.deliver(ctx, ch, msg)
			return nil
		})
	}

	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.Success {
			failed++
		}
	}

	d.logger.Infow("Notification dispatched",
		"event", event.Kind,
		"monitor_id", event.Monitor.ID,
		"incident_id", event.IncidentID,
		"channels", len(outcomes),
		"failed", failed)

	return outcomes, nil
}

func (d *Dispatcher) deliver(ctx context.Context, ch models.NotificationChannel, msg Message) (out Outcome) {
	out = Outcome{ChannelID: ch.ID, Type: ch.Type}

	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			out.Success = false
			out.Error = fmt.Sprintf("panic: %v", r)
			d.logger.Errorw("Channel delivery panic recovered",
				"channel_id", ch.ID,
				"panic", r,
				"stack", string(buf[:n]))
		}
		result := "success"
		if !out.Success {
			result = "failure"
		}
		metrics.NotificationsSent.WithLabelValues(string(ch.Type), result).Inc()
	}()

	sender, err := d.newSender(ch)
	if err != nil {
		out.Error = err.Error()
		d.logger.Warnw("Skipping notification channel", "channel_id", ch.ID, "error", err)
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := sender.Deliver(ctx, msg); err != nil {
		out.Error = err.Error()
		d.logger.Warnw("Notification delivery failed",
			"channel_id", ch.ID,
			"channel_type", ch.Type,
			"error", err)
		return out
	}

	out.Success = true
	return out
}
