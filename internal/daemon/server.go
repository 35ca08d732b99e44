package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/config"
	"github.com/david0ql/helpdeskd/internal/gateway"
	"github.com/david0ql/helpdeskd/internal/httpapi"
)

// Server owns the HTTP listener serving the REST API and the WebSocket
// endpoint.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds the HTTP server: the REST router plus /ws, wrapped
// in CORS for the configured origins.
func NewServer(cfg *config.Config, api *httpapi.Handler, ws *gateway.Handler, logger *zap.Logger) *Server {
	router := api.Router()
	router.Handle("/ws", ws)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           c.Handler(router),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop performs a graceful shutdown.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("http server stopping")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown error", zap.Error(err))
	}
}
