package offlineworker

import "github.com/rs/zerolog"

// Notification is a system notification with a fixed set of actions.
type Notification struct {
	ID      string
	Title   string
	Body    string
	Actions []NotificationAction
}

// NotificationAction is a button shown on a notification.
type NotificationAction struct {
	Action string
	Title  string
}

// Notifier displays system notifications on behalf of the worker.
// It is an external collaborator; the worker never inspects displayed
// notifications again except to close them by id.
type Notifier interface {
	Display(Notification) error
	Close(id string) error
}

// Client is an open page under the worker's control.
type Client interface {
	URL() string
	Focus() error
}

// ClientRegistry tracks the open pages the worker may control.
type ClientRegistry interface {
	// Find returns a client whose URL is within the given origin.
	Find(origin string) (Client, bool)
	// OpenWindow opens a new client at the given URL.
	OpenWindow(url string) error
	// ClaimAll puts all current clients under this worker's control.
	ClaimAll()
}

// LogNotifier is a Notifier that only logs. It is the default for hosts
// without a notification system.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Display(notification Notification) error {
	n.Log.Info().
		Str("id", notification.ID).
		Str("title", notification.Title).
		Str("body", notification.Body).
		Msg("Notification displayed")
	return nil
}

func (n LogNotifier) Close(id string) error {
	n.Log.Info().Str("id", id).Msg("Notification closed")
	return nil
}
