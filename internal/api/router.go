// Package api exposes the analysis engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/analysis"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Analyzer is the engine surface the API serves.
type Analyzer interface {
	BuildFactTable(ctx context.Context, p analysis.FactTableParams) (*analysis.FactTableResult, error)
	TimeSeriesAnalysis(ctx context.Context, p analysis.TimeSeriesParams) (*analysis.TimeSeriesResult, error)
	ListFilings(ctx context.Context, country, companyID string, limit int) (*analysis.FilingList, error)
}

// NewRouter builds the HTTP handler.
func NewRouter(a Analyzer) http.Handler {
	h := &handlers{analyzer: a}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/fact-table", h.factTable)
		r.Post("/time-series", h.timeSeries)
		r.Get("/filings", h.filings)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
