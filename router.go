package offlineworker

import (
	"net/http"
	"strings"
)

// strategyFunc serves an intercepted request. A non-nil error means total
// failure; the top-level handler turns it into the offline notice.
type strategyFunc func(http.ResponseWriter, *http.Request) error

// intercepts reports whether the worker handles the request itself.
// Non-read methods, denylisted URLs and non-HTTP schemes pass through
// unmodified.
func (wk *Worker) intercepts(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if scheme := r.URL.Scheme; scheme != "" && scheme != "http" && scheme != "https" {
		return false
	}
	url := requestURL(r)
	for _, blocked := range wk.denylist {
		if strings.Contains(url, blocked) {
			return false
		}
	}
	return true
}

// classify selects the strategy for an intercepted request.
// The first matching rule wins.
func (wk *Worker) classify(r *http.Request) (string, strategyFunc) {
	if wk.isShellAsset(r.URL.Path) {
		return "cache-first", wk.cacheFirst
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "text/html") {
		return "network-first-offline", wk.networkFirstOffline
	}
	if strings.Contains(accept, "image") {
		return "cache-first", wk.cacheFirst
	}
	return "network-first", wk.networkFirst
}

func (wk *Worker) isShellAsset(path string) bool {
	for _, asset := range wk.appShell {
		if path == asset {
			return true
		}
	}
	return false
}

// isNavigation reports whether the request loads a new top-level document.
func isNavigation(r *http.Request) bool {
	return r.Header.Get("Sec-Fetch-Mode") == "navigate"
}

// requestURL reconstructs the full URL the client asked for, including the
// host for origin-form requests, so denylist patterns can name hosts.
func requestURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	return r.Host + r.URL.RequestURI()
}
