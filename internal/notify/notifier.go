// Package notify delivers alert transitions to the external notification
// collaborator. Delivery is best-effort: a failed send is logged and
// dropped, never retried into the live path.
package notify

import (
	"context"
	"time"

	"grillstream/internal/logger"
	"grillstream/internal/models"
)

// Channel delivers one transition payload.
type Channel interface {
	Send(ctx context.Context, t models.AlertTransition) error
}

// Notifier adapts the alert evaluator's sink interface onto a Channel,
// detaching delivery from the producing goroutine.
type Notifier struct {
	channel Channel
	log     *logger.Logger
	timeout time.Duration
}

func NewNotifier(channel Channel, log *logger.Logger) *Notifier {
	return &Notifier{channel: channel, log: log, timeout: 10 * time.Second}
}

// OnAlert implements the alert sink. Sends happen on their own goroutine
// so the evaluator never waits on the collaborator.
func (n *Notifier) OnAlert(t models.AlertTransition) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.channel.Send(ctx, t); err != nil {
			n.log.Warnw("alert notification failed", "rule", t.RuleID, "state", t.State, "err", err)
		}
	}()
}

// LogChannel writes transitions to the log. Used when no webhook is
// configured.
type LogChannel struct {
	log *logger.Logger
}

func NewLogChannel(log *logger.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (c *LogChannel) Send(_ context.Context, t models.AlertTransition) error {
	c.log.Infow("alert notification",
		"device", t.DeviceID, "channel", t.ChannelID,
		"kind", t.Kind, "state", t.State, "value", t.Value, "at", t.At)
	return nil
}
