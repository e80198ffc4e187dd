package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/config"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Server runs the HTTP API until its context is cancelled, then drains
// in-flight requests.
type Server struct {
	srv  *http.Server
	logg *logger.Logger
}

// NewServer builds a server listening on addr with timeouts from cfg.
func NewServer(cfg config.HTTPConfig, addr string, handler http.Handler, logg *logger.Logger) *Server {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		logg: logg,
	}
}

// Run listens on the configured address.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logg.Info(ctx, "api.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
