// Package server exposes the reader handler over net/http for local runs.
package server

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/reader/internal/handler"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/reader/internal/protocol"
)

// NewRouter mirrors the API Gateway resources. Unmatched paths and methods
// still go through the handler so they get its JSON 404.
func NewRouter(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/stocks", forward(h, protocol.ResourceStocks))
	r.Get("/stocks/", forward(h, protocol.ResourceStock))
	r.Get("/stocks/{stockId}", forward(h, protocol.ResourceStock))

	r.NotFound(forward(h, ""))
	r.MethodNotAllowed(forward(h, ""))

	return r
}

func forward(h *handler.Handler, resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := protocol.Request{
			Resource:       resource,
			Method:         r.Method,
			PathParameters: map[string]string{},
		}
		if id := chi.URLParam(r, protocol.ParamStockID); id != "" {
			req.PathParameters[protocol.ParamStockID] = id
		}

		resp := h.Handle(r.Context(), req)

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		io.WriteString(w, resp.Body)
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("Request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
