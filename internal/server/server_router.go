package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func buildRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", healthzHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products/{org}/{product}", func(r chi.Router) {
			r.Get("/stages/{stage}", s.stageHandler)
			r.Get("/stages/{stage}/latest", s.latestHandler)
			r.Get("/stages/{stage}/pipelines/{commit}", s.stagePipelineHandler)
			r.Get("/stages/{stage}/pipelines/{commit}/{tag}", s.stagePipelineHandler)
			r.Get("/pipelines", s.historyHandler)
			r.Get("/tags", s.tagsHandler)
			r.Get("/commits", s.commitsHandler)
		})

		r.Get("/repos", s.listReposHandler)
		r.Get("/repos/search", s.searchReposHandler)

		r.Get("/favorites", s.listFavoritesHandler)
		r.Post("/favorites/{org}/{name}", s.addFavoriteHandler)
		r.Delete("/favorites/{org}/{name}", s.removeFavoriteHandler)
		r.Post("/favorites/{org}/{name}/toggle", s.toggleFavoriteHandler)
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
