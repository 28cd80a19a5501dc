// Command server runs the direct-chat HTTP API: encrypted message storage,
// paginated history, read tracking, and the SSE broadcast streams.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-direct-chat/internal/broadcast"
	"github.com/tbourn/go-direct-chat/internal/config"
	httpapi "github.com/tbourn/go-direct-chat/internal/http"
	"github.com/tbourn/go-direct-chat/internal/observability"
	"github.com/tbourn/go-direct-chat/internal/repo"
	"github.com/tbourn/go-direct-chat/internal/secretbox"
	"github.com/tbourn/go-direct-chat/internal/sysutil"
)

// version is stamped by the build via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	codec, err := secretbox.New(messageKey(cfg.AppKey))
	if err != nil {
		log.Fatal().Err(err).Msg("message key rejected")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	hub := broadcast.NewHub(cfg.Stream.Buffer)

	router := gin.New()
	httpapi.RegisterRoutes(router, db, codec, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		// Streams outlive any sane write timeout; SSE responses flush
		// per event, so the write deadline stays disabled and slow-client
		// protection comes from the read side and the proxy in front.
		WriteTimeout:   0,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown incomplete")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown incomplete")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}

// messageKey decodes the configured APP_KEY (base64, 32 bytes). Without one,
// the server generates a throwaway key so development still works; messages
// stored under it are unreadable after a restart.
func messageKey(appKey string) []byte {
	if appKey != "" {
		// Accept the common "base64:" prefix seen in exported app keys.
		key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(appKey, "base64:"))
		if err != nil {
			log.Fatal().Err(err).Msg("APP_KEY is not valid base64")
		}
		return key
	}
	log.Warn().Msg("APP_KEY not set; using a random per-process key")
	key := make([]byte, secretbox.KeySize)
	if _, err := rand.Read(key); err != nil {
		log.Fatal().Err(err).Msg("key generation failed")
	}
	return key
}
