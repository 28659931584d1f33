package offlineworker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// EventKind identifies the kind of a dispatched event.
type EventKind string

const (
	EventInstall           EventKind = "install"
	EventActivate          EventKind = "activate"
	EventSync              EventKind = "sync"
	EventPush              EventKind = "push"
	EventNotificationClick EventKind = "notificationclick"
	EventMessage           EventKind = "message"
)

// Event is the tagged payload passed to Dispatch.
// Only the fields relevant to its Kind are set.
type Event struct {
	Kind EventKind
	// Tag names the sync trigger (sync events).
	Tag string
	// Data is the push payload (push events).
	Data []byte
	// NotificationID and Action describe the clicked notification
	// (notificationclick events). An empty Action is the default click.
	NotificationID string
	Action         string
	// Command is the command name sent by a controlling page
	// (message events).
	Command string
}

type eventHandler func(context.Context, Event) error

var (
	ErrUnknownEvent   = errors.New("unknown event kind")
	ErrUnknownCommand = errors.New("unknown command")
)

// MessageCommandSkipWaiting asks the worker to activate immediately.
const MessageCommandSkipWaiting = "skipWaiting"

// notificationTitle is the fixed title used for push notifications.
const notificationTitle = "Something new happened!"

// Dispatch routes an event to its handler.
func (wk *Worker) Dispatch(ctx context.Context, ev Event) error {
	handler, ok := wk.handlers[ev.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Kind)
	}
	wk.log.Trace().Str("event", string(ev.Kind)).Msg("Dispatching event")
	return handler(ctx, ev)
}

func (wk *Worker) handleInstall(ctx context.Context, _ Event) error {
	return wk.Install(ctx)
}

func (wk *Worker) handleActivate(ctx context.Context, _ Event) error {
	return wk.Activate(ctx)
}

func (wk *Worker) handleSync(ctx context.Context, ev Event) error {
	hook, ok := wk.syncHooks[ev.Tag]
	if !ok {
		wk.log.Debug().Str("tag", ev.Tag).Msg("No sync hook registered for tag")
		return nil
	}
	wk.log.Debug().Str("tag", ev.Tag).Msg("Running sync hook")
	return hook(ctx)
}

func (wk *Worker) handlePush(_ context.Context, ev Event) error {
	if wk.notifier == nil {
		wk.log.Debug().Msg("No notifier configured, dropping push")
		return nil
	}
	return wk.notifier.Display(Notification{
		ID:    uuid.NewString(),
		Title: notificationTitle,
		Body:  string(ev.Data),
		Actions: []NotificationAction{
			{Action: "open", Title: "Open"},
			{Action: "dismiss", Title: "Dismiss"},
		},
	})
}

func (wk *Worker) handleNotificationClick(_ context.Context, ev Event) error {
	if wk.notifier != nil {
		if err := wk.notifier.Close(ev.NotificationID); err != nil {
			wk.log.Error().Err(err).Str("id", ev.NotificationID).Msg("Could not close notification")
		}
	}
	if ev.Action == "dismiss" {
		return nil
	}
	// "open" and the default click both focus or open the app
	if wk.clients == nil {
		return nil
	}
	origin := wk.originURL.String()
	if client, ok := wk.clients.Find(origin); ok {
		return client.Focus()
	}
	return wk.clients.OpenWindow(origin)
}

func (wk *Worker) handleMessage(ctx context.Context, ev Event) error {
	switch ev.Command {
	case MessageCommandSkipWaiting:
		wk.SkipWaiting()
		if wk.State() == StateInstalled {
			return wk.Activate(ctx)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, ev.Command)
	}
}
