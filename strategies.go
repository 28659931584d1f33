package offlineworker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/offline-worker/offline-worker/cache"
	serializer "github.com/offline-worker/offline-worker/pkg/response-serializer"
)

// cacheFirst serves from the static cache when possible. A hit is answered
// immediately and followed by a detached best-effort refresh of the entry.
// A miss goes to the network; a successful response is stored in the static
// cache on the way out.
func (wk *Worker) cacheFirst(w http.ResponseWriter, r *http.Request) error {
	key := cache.Key(r)
	entry, found, err := wk.cache.Get(wk.names.Static, key)
	if err != nil {
		wk.log.Error().Err(err).Str("key", key).Msg("Could not read from cache")
	}
	if found {
		res, resErr := wk.storedResponse(entry)
		if resErr == nil {
			refresh := backgroundRequest(r)
			wk.detach(func() { wk.refresh(refresh) })
			wk.sendStoredResponse(w, r, res)
			return nil
		}
		wk.log.Error().Err(resErr).Str("key", key).Msg("Could not create stored response")
	}
	requestedAt := time.Now()
	res, err := wk.fetcher.Fetch(r)
	if err != nil {
		return fmt.Errorf("cache-first fetch: %w", err)
	}
	return wk.sendAndStore(w, r, res, wk.names.Static, requestedAt)
}

// networkFirst goes to the network and stores successful responses in the
// dynamic cache. On transport failure it falls back to any stored response
// for the same request, static cache first.
func (wk *Worker) networkFirst(w http.ResponseWriter, r *http.Request) error {
	requestedAt := time.Now()
	res, err := wk.fetcher.Fetch(r)
	if err == nil {
		return wk.sendAndStore(w, r, res, wk.names.Dynamic, requestedAt)
	}
	key := cache.Key(r)
	for _, namespace := range []string{wk.names.Static, wk.names.Dynamic} {
		entry, found, cacheErr := wk.cache.Get(namespace, key)
		if cacheErr != nil {
			wk.log.Error().Err(cacheErr).Str("key", key).Msg("Could not read from cache")
			continue
		}
		if !found {
			continue
		}
		if res, resErr := wk.storedResponse(entry); resErr == nil {
			wk.log.Trace().Str("key", key).Str("cache", namespace).
				Msg("Network failed, serving from cache")
			wk.sendStoredResponse(w, r, res)
			return nil
		}
	}
	return fmt.Errorf("network-first fetch: %w", err)
}

// networkFirstOffline is networkFirst with an app shell fallback for
// navigations. Non-navigation failures propagate to the top-level handler.
func (wk *Worker) networkFirstOffline(w http.ResponseWriter, r *http.Request) error {
	err := wk.networkFirst(w, r)
	if err == nil {
		return nil
	}
	if !isNavigation(r) {
		return err
	}
	entry, found, cacheErr := wk.cache.Get(wk.names.Static, wk.shellIndexKey())
	if cacheErr != nil || !found {
		return err
	}
	res, resErr := wk.storedResponse(entry)
	if resErr != nil {
		wk.log.Error().Err(resErr).Msg("Could not create app shell response")
		return err
	}
	wk.log.Trace().Str("url", r.URL.String()).Msg("Serving app shell to offline navigation")
	wk.sendStoredResponse(w, r, res)
	return nil
}

// sendAndStore writes the live response to the client and, if it is a
// successful response, stores it in the given cache. The cache write is
// detached so it never slows down the response.
func (wk *Worker) sendAndStore(w http.ResponseWriter, r *http.Request, res *http.Response, namespace string, requestedAt time.Time) error {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	res.Body = io.NopCloser(bytes.NewReader(body))

	if isOK(res.StatusCode) {
		key := cache.Key(r)
		entry, serr := wk.serializeResponse(key, res, requestedAt)
		if serr != nil {
			wk.log.Error().Err(serr).Str("key", key).Msg("Could not serialize response")
		} else {
			wk.detach(func() {
				if perr := wk.cache.Put(namespace, key, entry); perr != nil {
					wk.log.Error().Err(perr).Str("key", key).Msg("Could not write to cache")
				}
			})
		}
	}

	copyHeader(w.Header(), res.Header)
	w.Header().Set("Worker-Cache", "miss")
	w.WriteHeader(res.StatusCode)
	if _, err := w.Write(body); err != nil {
		wk.log.Error().Err(err).Msg("Could not write response body to client")
	}
	wk.logRequest(r, "miss")
	return nil
}

// refresh re-fetches the request and overwrites the static cache entry.
// It is strictly best-effort: every failure is logged at trace level and
// otherwise discarded.
func (wk *Worker) refresh(r *http.Request) {
	requestedAt := time.Now()
	res, err := wk.fetcher.Fetch(r)
	if err != nil {
		wk.log.Trace().Err(err).Str("url", r.URL.String()).Msg("Background refresh failed")
		return
	}
	defer res.Body.Close()
	if !isOK(res.StatusCode) {
		wk.log.Trace().Int("status", res.StatusCode).Str("url", r.URL.String()).
			Msg("Background refresh got unexpected status")
		return
	}
	key := cache.Key(r)
	entry, err := wk.serializeResponse(key, res, requestedAt)
	if err != nil {
		wk.log.Trace().Err(err).Str("key", key).Msg("Background refresh could not serialize")
		return
	}
	if err := wk.cache.Put(wk.names.Static, key, entry); err != nil {
		wk.log.Trace().Err(err).Str("key", key).Msg("Background refresh could not store")
	}
}

// serializeResponse turns a live response into a cache entry. The response
// body is left readable afterwards.
func (wk *Worker) serializeResponse(key string, res *http.Response, requestedAt time.Time) (cache.CacheEntry, error) {
	receivedAt := time.Now()
	bts, err := serializer.StoredResponseToBytes(serializer.TimedResponse{
		Response:     res,
		RequestTime:  requestedAt,
		ResponseTime: receivedAt,
	})
	if err != nil {
		return cache.CacheEntry{}, err
	}
	return cache.CacheEntry{
		Key:         key,
		RequestedAt: requestedAt,
		ReceivedAt:  receivedAt,
		Bytes:       bts,
	}, nil
}

func (wk *Worker) shellIndexKey() string {
	req, err := http.NewRequest(http.MethodGet, wk.shellIndex, nil)
	if err != nil {
		return ""
	}
	return cache.Key(req)
}

// backgroundRequest clones a request for use in a detached refresh.
// This prevents a finished client request from prematurely cancelling the
// refresh through its context.
func backgroundRequest(r *http.Request) *http.Request {
	return r.Clone(context.Background())
}

// isOK reports whether the status code counts as successful for caching.
// Only successful responses are ever written into a cache.
func isOK(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
