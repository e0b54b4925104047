// ABOUTME: HTTP middleware wrapping the app mux: method override, request logging and metrics
// ABOUTME: Method override lets HTML forms issue PUT and DELETE through a _method field

package webapp

import (
	"net/http"
	"strings"
	"time"
)

// MethodOverrideField is the form or query parameter naming the real method.
const MethodOverrideField = "_method"

// methodOverride rewrites POST requests carrying _method=PUT|PATCH|DELETE
// before routing. The query string is checked first, then the form body.
func methodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			override := r.URL.Query().Get(MethodOverrideField)
			if override == "" {
				override = r.PostFormValue(MethodOverrideField)
			}
			switch m := strings.ToUpper(override); m {
			case http.MethodPut, http.MethodPatch, http.MethodDelete:
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// observe logs each request and records it in metrics. The route label is
// the mux pattern that matched, so it must wrap the mux directly.
func (a *App) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		route := r.Pattern
		if route == notFoundPattern {
			route = ""
		}
		a.metrics.observeRequest(route, r.Method, status, elapsed)
		a.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
		)
	})
}
