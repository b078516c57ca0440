// Package server wires HTTP handlers into a chi router for the chatrelay
// application via routing helpers.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes configures and returns the HTTP router with all application routes:
// the WebSocket endpoint, health and roster queries (also under /api),
// Prometheus metrics and the test page.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.healthHandler)
	r.HandleFunc("/ws", s.webSocketHandler)
	r.Get("/test", TestPageHandler)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.origins.cors)
		for _, prefix := range []string{"", "/api"} {
			r.Get(prefix+"/health", s.healthHandler)
			r.Get(prefix+"/users", s.usersHandler)
			r.Options(prefix+"/health", preflightHandler)
			r.Options(prefix+"/users", preflightHandler)
		}
	})

	return r
}

// requestLogger writes one debug line per HTTP request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
