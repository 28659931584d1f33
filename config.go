package offlineworker

import (
	"context"
	"net/http"
	"net/url"

	"github.com/offline-worker/offline-worker/cache"

	"github.com/rs/zerolog"
)

// DefaultCacheVersion is the version suffix used for cache names when no
// version is configured. Bumping it invalidates all caches of earlier
// versions on the next activation.
const DefaultCacheVersion = "v1.2"

// CacheNames holds the versioned identifiers of the named caches.
// Strategy logic only ever refers to these fields, so a version bump
// never touches strategy code.
type CacheNames struct {
	// Static holds the immutable app shell assets.
	Static string
	// Dynamic holds everything else fetched successfully.
	Dynamic string
	// Umbrella is retained for cleanup bookkeeping only.
	// Nothing is ever stored in it.
	Umbrella string
}

// NamesForVersion derives the cache names for a version string.
func NamesForVersion(version string) CacheNames {
	return CacheNames{
		Static:   "static-" + version,
		Dynamic:  "dynamic-" + version,
		Umbrella: "offline-worker-" + version,
	}
}

// Known returns the names that survive activation cleanup.
func (n CacheNames) Known() []string {
	return []string{n.Static, n.Dynamic, n.Umbrella}
}

// IsKnown reports whether name is one of the three known cache names.
func (n CacheNames) IsKnown(name string) bool {
	return name == n.Static || name == n.Dynamic || name == n.Umbrella
}

// DefaultAppShell is the fixed list of assets needed to render the
// application skeleton offline. Entries are origin-relative paths.
var DefaultAppShell = []string{
	"/",
	"/index.html",
	"/offline.html",
	"/manifest.json",
	"/css/app.css",
	"/js/app.js",
	"/js/feed.js",
}

// DefaultShellIndex is the app shell entry served to navigations that fail
// while offline.
const DefaultShellIndex = "/"

// DefaultDenylist contains third-party script-execution endpoints that are
// never intercepted. Matching is a substring match on the full request URL,
// so it currently also bypasses static assets served from these hosts.
var DefaultDenylist = []string{
	"www.google-analytics.com",
	"www.googletagmanager.com",
}

// SyncTagNewAttendance is the deferred background task trigger for
// attendance-data synchronization.
const SyncTagNewAttendance = "sync-new-attendance"

// SyncHook is an external collaborator invoked on a named sync trigger.
type SyncHook func(context.Context) error

type Config struct {
	// Storage for the named caches.
	Cache cache.CacheProvider
	// URL of the origin server.
	// Origins with paths are not supported.
	OriginURL url.URL
	// Hostname to use for HTTP requests and TLS negotiation.
	// Use if needed if e.g. the origin URL is just an IP address.
	OriginHost string
	// Version suffix for cache names. Defaults to DefaultCacheVersion.
	// Ignored when Names is set.
	CacheVersion string
	// Explicit cache names. Derived from CacheVersion if zero.
	Names CacheNames
	// App shell asset paths precached on install. Defaults to
	// DefaultAppShell.
	AppShell []string
	// App shell entry served to offline navigations. Defaults to
	// DefaultShellIndex.
	ShellIndex string
	// Request URL patterns that are never intercepted. Defaults to
	// DefaultDenylist.
	Denylist []string
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
	// Notification collaborator. Push and notification-click events are
	// no-ops if nil.
	Notifier Notifier
	// Open page registry. Client claiming and focusing are no-ops if nil.
	Clients ClientRegistry
	// Hooks invoked on named sync triggers. A sync event with an
	// unregistered tag is logged and dropped.
	SyncHooks map[string]SyncHook
	// Transport used for live fetches and pass-through proxying.
	// http.DefaultTransport if nil.
	Transport http.RoundTripper
}
