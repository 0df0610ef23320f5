// Package server exposes dashboard outcomes, code host data and favorites
// as a read-mostly JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/waabox/sekideck/internal/dashboard"
	"github.com/waabox/sekideck/internal/domain"
)

// Server serves the JSON API.
type Server struct {
	svc        *dashboard.Service
	favorites  domain.FavoritesStore
	logger     *slog.Logger
	defaultOrg string
	handler    http.Handler
}

// New creates a Server. defaultOrg is used by repository listing when the
// request names no organization.
func New(svc *dashboard.Service, favorites domain.FavoritesStore, logger *slog.Logger, defaultOrg string) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{svc: svc, favorites: favorites, logger: logger, defaultOrg: defaultOrg}
	s.handler = buildRouter(s)
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
