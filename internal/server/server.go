// Package server exposes the agent search over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"maharera-api/internal/agents"
	"maharera-api/internal/maharera"
	"maharera-api/internal/telemetry"
	"maharera-api/lib/assert"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Aggregator interface {
	Aggregate(ctx context.Context, filters agents.Filters, startPage, pageCount int) (agents.BatchResult, error)
}

type Reference interface {
	Divisions(ctx context.Context) ([]maharera.Option, error)
	Districts(ctx context.Context, divisionId int) ([]maharera.Option, error)
}

type Server struct {
	aggregator Aggregator
	reference  Reference
	tel        telemetry.API
}

func NewServer(aggregator Aggregator, reference Reference, tel telemetry.API) Server {
	assert.NotNil(aggregator, "aggregator")
	assert.NotNil(reference, "reference")
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return Server{
		aggregator: aggregator,
		reference:  reference,
		tel:        telemetry.NewScopedAPI("server", tel),
	}
}

// Handler returns the routes of the server wrapped with the request
// middleware and otel instrumentation.
func (s Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/agents", s.handleAgents)
		r.Get("/divisions", s.handleDivisions)
		r.Get("/districts", s.handleDistricts)
		r.Get("/openapi.json", handleOpenapi)
	})

	return otelhttp.NewHandler(r, "maharera-api")
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.InfoContext(
			r.Context(),
			"http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
