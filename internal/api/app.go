package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/roomkit/relay/internal/config"
	"github.com/roomkit/relay/internal/server"
)

// RelayApp is the HTTP surface in front of the relay engine: the
// websocket upgrade endpoint, the per-room request endpoint used by
// the counter kind, and the stats report.
type RelayApp struct {
	log            *log.Logger
	mux            *http.Server
	rs             *server.RelayServer
	allowedOrigins []string
}

func NewRelayApp(mux *http.ServeMux, logger *log.Logger, rs *server.RelayServer, cfg *config.Config) *RelayApp {
	s := &RelayApp{
		log:            logger,
		rs:             rs,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /ws/{room}", s.serveWs)
	mux.HandleFunc("GET /api/rooms/{room}", s.roomRequest)
	mux.HandleFunc("POST /api/rooms/{room}", s.roomRequest)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *RelayApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *RelayApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
