package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resumeform/internal/observability"
)

// Start serves the bridge until SIGINT or SIGTERM, then shuts down
// gracefully
func (s *Server) Start(om *observability.ObservabilityManager) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", net.JoinHostPort(s.Host, s.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.displayServerInfo()
	return s.Serve(ctx, ln, om)
}

// Serve serves the bridge on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener, om *observability.ObservabilityManager) error {
	httpServer, err := s.setupHTTPServer(om)
	if err != nil {
		_ = ln.Close()
		return err
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting bridge server",
			"address", ln.Addr().String(),
			"tls_enabled", httpServer.TLSConfig != nil)

		var err error
		if httpServer.TLSConfig != nil {
			// certificates are already loaded into TLSConfig
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			err = httpServer.Serve(ln)
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		s.cleanupRateLimiter()
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) (*http.Server, error) {
	tlsConfig, err := s.TLSConfig.BuildServerTLS()
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}

	return &http.Server{
		Handler:           s.Handler(om),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}, nil
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.cleanupRateLimiter()

	// hijacked websocket connections are not tracked by Shutdown
	s.sessions.closeAll()

	s.Logger.Info("Shutting down bridge server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Debug("Rate limiter cleaned up")
	}
}
