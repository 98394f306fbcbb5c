package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// metricsMiddleware records method, route template, status and latency.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(srw, r)

		duration := time.Since(start)
		endpoint := getEndpoint(r)
		s.metrics.RecordHTTPRequest(r.Method, endpoint, srw.statusCode, duration)

		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("endpoint", endpoint),
			zap.Int("status", srw.statusCode),
			zap.Duration("duration", duration),
		)
	})
}

// corsMiddleware lets the grid origin call the API from a browser.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.CORSOrigin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", s.config.CORSOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

// statusResponseWriter captures the status code
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// getEndpoint returns the route template so metrics labels stay bounded.
func getEndpoint(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}

	pathTemplate, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}

	return pathTemplate
}

// foldPathCase rewrites a request path that matches one of paths ignoring
// case to its canonical spelling before routing.
func foldPathCase(next http.Handler, paths ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, p := range paths {
			if r.URL.Path != p && strings.EqualFold(r.URL.Path, p) {
				r = r.Clone(r.Context())
				r.URL.Path = p
				r.URL.RawPath = ""
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}
