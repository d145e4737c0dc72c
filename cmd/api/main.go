// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Marga-Ghale/ora-discuss/internal/api"
	"github.com/Marga-Ghale/ora-discuss/internal/auth"
	"github.com/Marga-Ghale/ora-discuss/internal/config"
	"github.com/Marga-Ghale/ora-discuss/internal/cron"
	"github.com/Marga-Ghale/ora-discuss/internal/db"
	"github.com/Marga-Ghale/ora-discuss/internal/logger"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
	"github.com/Marga-Ghale/ora-discuss/internal/repository/memory"
	"github.com/Marga-Ghale/ora-discuss/internal/seed"
	"github.com/Marga-Ghale/ora-discuss/internal/service"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
	"github.com/Marga-Ghale/ora-discuss/internal/storage"
)

func main() {
	// ============================================
	// Load environment variables and configuration
	// ============================================
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.IsProduction())
	if envErr != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ============================================
	// Storage
	// ============================================
	var repos *repository.Repositories
	switch cfg.StorageDriver {
	case "memory":
		repos = memory.NewRepositories()
		log.Info().Msg("using in-memory repositories")
	default:
		if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		pg, err := db.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
		}
		defer pg.Close()
		repos = repository.NewRepositories(pg.Pool, pg.SQLX)
	}

	var files storage.FileStore = storage.NewMemoryStore()
	if cfg.MinioEndpoint != "" {
		minioStore, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialise file store")
		}
		files = minioStore
	} else {
		log.Warn().Msg("MINIO_ENDPOINT not set, uploaded files live in memory")
	}

	// ============================================
	// WebSocket hub (+ optional Redis relay)
	// ============================================
	hub := socket.NewHub()
	broadcaster := socket.NewBroadcaster(hub)

	var relay *socket.RedisRelay
	if cfg.RedisURL != "" {
		redisDB, err := db.NewRedisDB(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, broadcasting to local connections only")
		} else {
			defer redisDB.Close()
			relay = socket.NewRedisRelay(redisDB.Client, socket.DefaultRelayChannel)
			hub.SetRelay(relay)
		}
	}

	// ============================================
	// Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		Files:       files,
		Broadcaster: broadcaster,
	})

	issuer := auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Hour)

	if !cfg.IsProduction() {
		if err := seed.SeedData(ctx, repos); err != nil {
			log.Error().Err(err).Msg("[Seed] failed")
		}
		for _, u := range seed.Users {
			if token, err := issuer.Issue(u); err == nil {
				log.Debug().Str("user", u.ID).Str("token", token).Msg("development token")
			}
		}
	}

	// ============================================
	// Cron
	// ============================================
	scheduler := cron.NewScheduler(services.Ledger, hub, cfg.NotificationRetention, cfg.NotificationPurgeSpec)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer scheduler.Stop()

	// ============================================
	// HTTP
	// ============================================
	router := api.NewRouter(api.RouterDeps{
		Services:       services,
		Hub:            hub,
		WS:             socket.NewHandler(hub, issuer, services.Project, services.Message, cfg.AllowedOrigins),
		Tokens:         issuer,
		AllowedOrigins: cfg.AllowedOrigins,
		Storage:        cfg.StorageDriver,
		RelayEnabled:   relay != nil,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx, hub)
		})
	}
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server exited")
}
