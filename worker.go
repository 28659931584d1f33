package offlineworker

import (
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"

	"github.com/offline-worker/offline-worker/cache"
	serializer "github.com/offline-worker/offline-worker/pkg/response-serializer"

	"github.com/rs/zerolog"
)

// Worker intercepts page requests and serves them through one of four
// caching strategies over the named caches. It implements http.Handler.
type Worker struct {
	cache       cache.CacheProvider
	names       CacheNames
	appShell    []string
	shellIndex  string
	denylist    []string
	log         zerolog.Logger
	fetcher     Fetcher
	passthrough httputil.ReverseProxy
	notifier    Notifier
	clients     ClientRegistry
	syncHooks   map[string]SyncHook
	handlers    map[EventKind]eventHandler
	originURL   url.URL

	stateMutex  sync.Mutex
	state       State
	skipWaiting bool

	inflight sync.WaitGroup
}

// CreateWorker initializes the worker instance.
// It wires up the collaborators and the event dispatch table, but does not
// run any lifecycle event; dispatch install and activate to take over.
func CreateWorker(config Config) *Worker {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	// create a child logger and add defaults
	logger = logger.With().
		Str("origin", config.OriginURL.String()).
		Logger()

	names := config.Names
	if names == (CacheNames{}) {
		version := config.CacheVersion
		if version == "" {
			version = DefaultCacheVersion
		}
		names = NamesForVersion(version)
	}

	appShell := config.AppShell
	if appShell == nil {
		appShell = DefaultAppShell
	}
	shellIndex := config.ShellIndex
	if shellIndex == "" {
		shellIndex = DefaultShellIndex
	}
	denylist := config.Denylist
	if denylist == nil {
		denylist = DefaultDenylist
	}
	syncHooks := config.SyncHooks
	if syncHooks == nil {
		syncHooks = map[string]SyncHook{}
	}

	host := config.OriginURL.Host
	hostHeader := host
	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if config.OriginHost != "" {
		hostHeader = config.OriginHost
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				ServerName: config.OriginHost,
			},
		}
	}

	w := &Worker{
		cache:      config.Cache,
		names:      names,
		appShell:   appShell,
		shellIndex: shellIndex,
		denylist:   denylist,
		log:        logger,
		notifier:   config.Notifier,
		clients:    config.Clients,
		syncHooks:  syncHooks,
		originURL:  config.OriginURL,
		state:      StateNew,
	}

	w.fetcher = newOriginFetcher(config.OriginURL, hostHeader, transport)
	w.passthrough = httputil.ReverseProxy{
		Director:  createDirector(config.OriginURL.Scheme, host, hostHeader),
		Transport: transport,
	}
	w.handlers = map[EventKind]eventHandler{
		EventInstall:           w.handleInstall,
		EventActivate:          w.handleActivate,
		EventSync:              w.handleSync,
		EventPush:              w.handlePush,
		EventNotificationClick: w.handleNotificationClick,
		EventMessage:           w.handleMessage,
	}

	return w
}

// ServeHTTP implements the http.Handler interface.
// Requests the worker does not intercept are handed to the pass-through
// proxy unmodified. Strategy failures are converted into a synthetic
// 200-status offline notice, never into an HTTP error status.
func (wk *Worker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !wk.intercepts(r) {
		wk.log.Trace().Str("url", r.URL.String()).Str("method", r.Method).
			Msg("Passing request through")
		wk.passthrough.ServeHTTP(w, r)
		return
	}
	strategy, serve := wk.classify(r)
	if err := serve(w, r); err != nil {
		wk.log.Debug().Err(err).
			Str("url", r.URL.String()).
			Str("strategy", strategy).
			Msg("Serving offline notice")
		wk.sendOfflineNotice(w)
	}
}

// offlineNotice is the canned response for total failures.
type offlineNotice struct {
	Offline bool   `json:"offline"`
	Message string `json:"message"`
}

func (wk *Worker) sendOfflineNotice(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Worker-Cache", "offline")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(offlineNotice{
		Offline: true,
		Message: "You are offline and this content is not cached.",
	}); err != nil {
		wk.log.Error().Err(err).Msg("Could not write offline notice")
	}
}

// storedResponse re-materializes the response held in a cache entry.
func (wk *Worker) storedResponse(entry cache.CacheEntry) (*http.Response, error) {
	sRes, err := serializer.BytesToStoredResponse(entry.Bytes)
	if err != nil {
		return nil, err
	}
	return sRes.Response, nil
}

func (wk *Worker) sendStoredResponse(w http.ResponseWriter, r *http.Request, res *http.Response) {
	if res.Body != nil {
		defer res.Body.Close()
	}
	copyHeader(w.Header(), res.Header)
	w.Header().Set("Worker-Cache", "hit")
	w.WriteHeader(res.StatusCode)
	if _, err := io.Copy(w, res.Body); err != nil {
		wk.log.Error().Err(err).Msg("Could not write response body to client")
	}
	wk.logRequest(r, "hit")
}

func (wk *Worker) logRequest(r *http.Request, outcome string) {
	wk.log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("outcome", outcome).
		Msg("Sending response to client")
}

// detach runs fn in its own goroutine tracked on the in-flight group.
// Work spawned this way is fire-and-forget: its errors are discarded and
// never observed by any client.
func (wk *Worker) detach(fn func()) {
	wk.inflight.Add(1)
	go func() {
		defer wk.inflight.Done()
		fn()
	}()
}

// Wait blocks until all detached background work has completed.
// Hosts should call it before recycling the worker.
func (wk *Worker) Wait() {
	wk.inflight.Wait()
}

func createDirector(scheme, host, hostHeader string) func(req *http.Request) {
	return func(req *http.Request) {
		// absolute-form requests go to their own host untouched
		if req.URL.Host != "" {
			return
		}
		req.URL.Scheme = scheme
		req.URL.Host = host
		if hostHeader != "" {
			req.Host = hostHeader
		}
	}
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
