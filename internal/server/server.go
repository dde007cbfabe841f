package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"royalletters/internal/config"
)

// Server ties together HTTP serving and WebSocket handling.
type Server struct {
	handlers *Handlers
	cfg      config.Server
	log      *zap.Logger
	srv      *http.Server
}

// New creates a server whose rooms close when ctx is done.
func New(ctx context.Context, cfg config.Server, log *zap.Logger) *Server {
	s := &Server{
		handlers: NewHandlers(ctx, cfg, log),
		cfg:      cfg,
		log:      log,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	return s
}

func (s *Server) Handlers() *Handlers { return s.handlers }

// Routes returns the HTTP routes of the server.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/create", s.handlers.HandleCreateGame)
	mux.HandleFunc("/api/qr", s.handlers.HandleQR)
	mux.HandleFunc("/api/start", s.handlers.HandleStart)
	mux.HandleFunc("/api/state", s.handlers.HandleState)
	mux.HandleFunc("/api/player-id", s.handlers.HandlePlayerID)
	mux.HandleFunc("/ws", s.handlers.HandleWS)
	return mux
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("royal letters server starting", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
