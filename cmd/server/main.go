package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jalvarez/go-partyjam/internal/api"
	"github.com/jalvarez/go-partyjam/internal/catalog"
	"github.com/jalvarez/go-partyjam/internal/config"
	"github.com/jalvarez/go-partyjam/internal/database"
	"github.com/jalvarez/go-partyjam/internal/jam"
	"github.com/jalvarez/go-partyjam/internal/stats"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const defaultSigningKey = "aCqQNMYLyUTz6W2dzuBkQx0zURSm0B2a+fRqRhT7A3o="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// best-effort; the env file is only used in development
	godotenv.Load()

	flag.StringVar(&addr, "addr", envOr("PARTYJAM_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("PARTYJAM_DSN", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string, or 'memory' for an in-process store")
	flag.StringVar(&signingKey, "signing-key", envOr("PARTYJAM_SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[partyjam] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins,
		os.Getenv("SPOTIFY_CLIENT_ID"), os.Getenv("SPOTIFY_CLIENT_SECRET"))
	if err != nil {
		logger.Fatal("config:", err)
	}

	var db database.JamRepository
	if cfg.DatabaseDSN == "memory" {
		db = database.NewMemJamRepository()
	} else {
		pgRepo, err := database.NewPgJamRepository(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("db open:", err)
		}
		defer func() {
			if err := pgRepo.Close(); err != nil {
				logger.Fatal("db close:", err)
			}
		}()
		db = pgRepo
	}

	var trackSearcher catalog.TrackSearcher
	if cfg.SpotifyClientId != "" && cfg.SpotifyClientSecret != "" {
		trackSearcher = catalog.NewSpotifyClient(cfg.SpotifyClientId, cfg.SpotifyClientSecret)
	} else {
		logger.Println("catalog credentials not set, search disabled")
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	jamServer, err := jam.NewJamServer(logger, db, statsUpdater)
	if err != nil {
		logger.Fatal("new jam server:", err)
	}

	srv := api.NewPartyJamApp(mux, logger, jamServer, db, trackSearcher, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go jamServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down jam server...")
	if err := jamServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("jam server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
