package recorder

import (
	"net/http"
	"time"
)

// ResponseRecorder is a wrapper around http.ResponseWriter that records the
// status code and the number of bytes written, for access logging.
type ResponseRecorder struct {
	rw          http.ResponseWriter
	status      int
	wroteHeader bool
	bytes       int64
	CreatedAt   time.Time
}

// New returns a new ResponseRecorder wrapping w.
func New(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{
		rw:        w,
		CreatedAt: time.Now(),
	}
}

// Implementation of http.ResponseWriter
func (r *ResponseRecorder) Header() http.Header {
	return r.rw.Header()
}

// Implementation of http.ResponseWriter
func (r *ResponseRecorder) WriteHeader(statusCode int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = statusCode
	r.rw.WriteHeader(statusCode)
}

// Implementation of http.ResponseWriter
func (r *ResponseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.rw.Write(b)
	r.bytes += int64(n)
	return n, err
}

// StatusCode returns the status code of the response.
func (r *ResponseRecorder) StatusCode() int {
	return r.status
}

// BytesWritten returns the number of body bytes written so far.
func (r *ResponseRecorder) BytesWritten() int64 {
	return r.bytes
}
