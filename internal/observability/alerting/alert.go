// Package alerting forwards operator-facing failures to notification
// channels. Which error classes page is decided by the error registry's
// attributes, not by callers.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
)

// Channel names a notification channel.
type Channel string

const (
	ChannelWebhook Channel = "webhook"
	ChannelSlack   Channel = "slack"
)

// Event describes one failure worth an operator's attention.
type Event struct {
	Code       xerrors.Code      `json:"code"`
	Message    string            `json:"message"`
	Severity   xerrors.Severity  `json:"severity"`
	Operation  string            `json:"operation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// FromError builds an event from a classified error. ok is false when the
// error's class does not page.
func FromError(operation string, err error) (Event, bool) {
	classified, found := xerrors.From(err)
	if !found || !classified.ShouldAlert() {
		return Event{}, false
	}
	return Event{
		Code:       classified.Code(),
		Message:    classified.Message(),
		Severity:   classified.Severity(),
		Operation:  operation,
		Metadata:   classified.Metadata(),
		OccurredAt: time.Now().UTC(),
	}, true
}

// Notifier delivers events to one channel.
type Notifier interface {
	Channel() Channel
	Notify(ctx context.Context, event Event) error
}

// Dispatcher broadcasts events to every registered notifier.
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// FanoutDispatcher delivers each event to all of its notifiers. Delivery
// failures are joined, never short-circuited.
type FanoutDispatcher struct {
	notifiers map[Channel]Notifier
}

// NewFanout builds a dispatcher over the given notifiers. Nil notifiers are
// skipped, so an unconfigured channel costs nothing.
func NewFanout(notifiers ...Notifier) *FanoutDispatcher {
	set := make(map[Channel]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		set[n.Channel()] = n
	}
	return &FanoutDispatcher{notifiers: set}
}

// Notify implements Dispatcher.
func (d *FanoutDispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", notifier.Channel(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// WebhookNotifier posts the event as JSON to a configured endpoint.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

// Channel implements Notifier.
func (n *WebhookNotifier) Channel() Channel { return ChannelWebhook }

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.URL == "" {
		return nil
	}
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("alert webhook responded %s", resp.Status)
	}
	return nil
}

// SlackSender posts a message to a Slack channel.
type SlackSender interface {
	Send(ctx context.Context, channel, content string) error
}

// SlackNotifier formats events for a Slack channel.
type SlackNotifier struct {
	Sender    SlackSender
	ChannelID string
}

// Channel implements Notifier.
func (n *SlackNotifier) Channel() Channel { return ChannelSlack }

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.Sender == nil || n.ChannelID == "" {
		return nil
	}
	content := fmt.Sprintf("*[%s]* %s during %s: %s",
		event.Severity, event.Code, event.Operation, event.Message)
	return n.Sender.Send(ctx, n.ChannelID, content)
}
