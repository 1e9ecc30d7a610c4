package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"helpdesk/internal/config"
	"helpdesk/internal/crypto"
	"helpdesk/internal/database"
	"helpdesk/internal/guard"
	"helpdesk/internal/handlers"
	"helpdesk/internal/logger"
	"helpdesk/internal/middleware"
	"helpdesk/internal/notify"
	"helpdesk/internal/server"
	"helpdesk/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	if err := database.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("seed admin")
	}

	cipher, err := crypto.NewCipher(cfg.EncryptionSecret, cfg.EncryptionLegacyKey)
	if err != nil {
		log.Fatal().Err(err).Msg("cipher")
	}

	var pub notify.Publisher
	nc, err := notify.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatal().Err(err).Msg("nats")
	}
	if nc != nil {
		defer nc.Drain()
		pub = nc
		log.Info().Str("url", cfg.NATSURL).Msg("ticket events enabled")
	}

	var limiter middleware.Limiter = middleware.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		limiter = middleware.NewRedisLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow)
	}

	sessions := session.NewStore(db, nil)
	signer := session.NewSigner(cfg.SessionSecret, nil)

	r := server.NewRouter(server.Deps{
		Config: cfg,
		Handler: &handlers.Handler{
			DB:           db,
			Cipher:       cipher,
			Sessions:     sessions,
			Signer:       signer,
			Notifier:     notify.New(db, pub),
			UploadDir:    cfg.UploadDir,
			CookieSecure: cfg.CookieSecure,
		},
		Guard: &guard.Guard{
			DB:                 db,
			Sessions:           sessions,
			Signer:             signer,
			LegacyQuerySession: cfg.ClientLegacyQuerySession,
		},
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
