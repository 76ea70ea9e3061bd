package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/jalvarez/go-partyjam/internal/catalog"
	"github.com/jalvarez/go-partyjam/internal/config"
	"github.com/jalvarez/go-partyjam/internal/database"
	"github.com/jalvarez/go-partyjam/internal/jam"
	"github.com/teris-io/shortid"
)

type PartyJamApp struct {
	log            *log.Logger
	db             database.JamRepository
	mux            *http.Server
	js             *jam.JamServer
	catalog        catalog.TrackSearcher
	signingKey     []byte
	allowedOrigins []string
	// generateShortId produces room codes; replaced in tests
	generateShortId func() (string, error)
}

func NewPartyJamApp(mux *http.ServeMux, logger *log.Logger, js *jam.JamServer, db database.JamRepository, trackSearcher catalog.TrackSearcher, cfg *config.Config) *PartyJamApp {
	s := &PartyJamApp{
		log:             logger,
		db:              db,
		js:              js,
		catalog:         trackSearcher,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("POST /api/rooms", s.createRoom)
	mux.HandleFunc("GET /api/rooms", s.getRoom)
	mux.Handle("POST /api/rooms/close", s.hostAuthMiddleware(s.closeRoom))
	mux.HandleFunc("POST /api/queue", s.addTrack)
	mux.HandleFunc("GET /api/queue", s.getQueue)
	mux.Handle("POST /api/queue/advance", s.hostAuthMiddleware(s.advanceQueue))
	mux.HandleFunc("POST /api/votes", s.castVote)
	mux.HandleFunc("GET /api/search", s.searchTracks)
	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *PartyJamApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *PartyJamApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
