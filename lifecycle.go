package offlineworker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/offline-worker/offline-worker/cache"
)

// State is the worker's position in its lifecycle.
type State int

const (
	StateNew State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	}
	return "unknown"
}

// State returns the current lifecycle state.
func (wk *Worker) State() State {
	wk.stateMutex.Lock()
	defer wk.stateMutex.Unlock()
	return wk.state
}

func (wk *Worker) setState(state State) {
	wk.stateMutex.Lock()
	wk.state = state
	wk.stateMutex.Unlock()
	wk.log.Info().Str("state", state.String()).Msg("Worker state changed")
}

// SkipWaiting marks the worker as ready to activate without waiting for
// existing clients to disconnect.
func (wk *Worker) SkipWaiting() {
	wk.stateMutex.Lock()
	wk.skipWaiting = true
	wk.stateMutex.Unlock()
}

// Install pre-populates the static cache with the app shell assets and
// creates the empty dynamic cache. Each asset is fetched fresh, bypassing
// any upstream cache. Install ends by signalling readiness to take over
// immediately.
func (wk *Worker) Install(ctx context.Context) error {
	wk.setState(StateInstalling)
	for _, path := range wk.appShell {
		if err := wk.precache(ctx, path); err != nil {
			return err
		}
	}
	if err := wk.cache.EnsureNamespace(wk.names.Dynamic); err != nil {
		return fmt.Errorf("creating dynamic cache: %w", err)
	}
	wk.setState(StateInstalled)
	wk.SkipWaiting()
	return nil
}

func (wk *Worker) precache(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("app shell request for %s: %w", path, err)
	}
	// the shell must come from the network, not from an upstream cache
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	requestedAt := time.Now()
	res, err := wk.fetcher.Fetch(req)
	if err != nil {
		return fmt.Errorf("precaching %s: %w", path, err)
	}
	defer res.Body.Close()
	if !isOK(res.StatusCode) {
		return fmt.Errorf("precaching %s: unexpected status %d", path, res.StatusCode)
	}

	key := cache.Key(req)
	entry, err := wk.serializeResponse(key, res, requestedAt)
	if err != nil {
		return fmt.Errorf("precaching %s: %w", path, err)
	}
	if err := wk.cache.Put(wk.names.Static, key, entry); err != nil {
		return fmt.Errorf("precaching %s: %w", path, err)
	}
	wk.log.Trace().Str("key", key).Msg("Precached app shell asset")
	return nil
}

// Activate deletes every cache namespace that is not one of the three
// known names, then claims control of all open clients immediately.
func (wk *Worker) Activate(ctx context.Context) error {
	wk.setState(StateActivating)
	names, err := wk.cache.Namespaces()
	if err != nil {
		return fmt.Errorf("listing caches: %w", err)
	}
	for _, name := range names {
		if wk.names.IsKnown(name) {
			continue
		}
		wk.log.Debug().Str("cache", name).Msg("Dropping cache from previous version")
		if err := wk.cache.DropNamespace(name); err != nil {
			return fmt.Errorf("dropping cache %s: %w", name, err)
		}
	}
	if wk.clients != nil {
		wk.clients.ClaimAll()
	}
	wk.setState(StateActivated)
	return nil
}
