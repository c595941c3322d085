package web

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/availhq/avail/internal/utils"
)

// HTTPProtocolMiddleware prevents HTTP/3 QUIC protocol issues in cloud
// environments by keeping browsers off QUIC, which breaks SSE behind
// some proxy setups
func HTTPProtocolMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", "clear")

		if strings.HasPrefix(r.URL.Path, "/events") {
			w.Header().Set("Connection", "keep-alive")
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestLoggingMiddleware logs method, path, status and duration for
// every request. SSE connections are skipped, their duration is the
// connection lifetime and would flood the log.
func RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/events") {
			next.ServeHTTP(w, r)
			return
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		log.Printf("%s %s %d %s", r.Method,
			utils.SanitizeLogString(r.URL.Path), recorder.status, time.Since(start))
	})
}

// WrapMuxWithMiddleware wraps an HTTP mux with the standard middleware chain
func WrapMuxWithMiddleware(mux *http.ServeMux) http.Handler {
	return HTTPProtocolMiddleware(RequestLoggingMiddleware(mux))
}
