package cache

import (
	"fmt"
	"net/http"
	"strings"
)

const methodSeparator = ":"

// Key returns the cache key for a request within a namespace.
// The key is the request method followed by the URL as sent by the client,
// so origin-form requests ("/page") and absolute-form requests
// ("https://cdn.example.com/lib.css") get distinct keys.
func Key(r *http.Request) string {
	return r.Method + methodSeparator + r.URL.String()
}

// RequestFromKey generates a caching-wise equal request to the request
// that resulted in the provided key.
func RequestFromKey(key string) (*http.Request, error) {
	method, uri, found := strings.Cut(key, methodSeparator)
	if !found {
		return nil, fmt.Errorf("malformed key: %s", key)
	}
	return http.NewRequest(method, uri, nil)
}
