package offlineworker

import (
	"net/http"
	"net/url"
)

// Fetcher performs live network fetches on behalf of the strategies.
// It returns an error only on transport failure; a non-2xx response is a
// response, not an error.
type Fetcher interface {
	Fetch(r *http.Request) (*http.Response, error)
}

// originFetcher directs origin-form requests at the configured origin and
// sends absolute-form requests to their own host.
type originFetcher struct {
	origin     url.URL
	hostHeader string
	transport  http.RoundTripper
}

func newOriginFetcher(origin url.URL, hostHeader string, transport http.RoundTripper) *originFetcher {
	return &originFetcher{
		origin:     origin,
		hostHeader: hostHeader,
		transport:  transport,
	}
}

func (f *originFetcher) Fetch(r *http.Request) (*http.Response, error) {
	out := r.Clone(r.Context())
	if out.URL.Host == "" {
		out.URL.Scheme = f.origin.Scheme
		out.URL.Host = f.origin.Host
		if f.hostHeader != "" {
			out.Host = f.hostHeader
		}
	}
	// an inbound RequestURI must not be set on an outgoing request
	out.RequestURI = ""
	out.Body = nil
	return f.transport.RoundTrip(out)
}
