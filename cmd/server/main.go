package main // Entry point package

import (
	"context"
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/audio-vault/internal/config"
	"github.com/iliyamo/audio-vault/internal/database"
	"github.com/iliyamo/audio-vault/internal/handler"
	"github.com/iliyamo/audio-vault/internal/middleware"
	"github.com/iliyamo/audio-vault/internal/oauth"
	"github.com/iliyamo/audio-vault/internal/queue"
	"github.com/iliyamo/audio-vault/internal/repository"
	"github.com/iliyamo/audio-vault/internal/router"
	"github.com/iliyamo/audio-vault/internal/storage"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	users := repository.NewUserRepo(db)
	files := repository.NewAudioRepo(db)
	oauthClient := oauth.NewClient(cfg.Yandex)

	authHandler := handler.NewAuthHandler(cfg, users, oauthClient)
	userHandler := handler.NewUserHandler(users)
	audioHandler := handler.NewAudioHandler(files, store)
	adminHandler := handler.NewAdminHandler(users, files, store, func(ctx context.Context) error {
		return database.Bootstrap(ctx, db)
	})

	e := echo.New()

	// Rate limiting runs on every route; without Redis it is a pass-through.
	e.Use(middleware.RateLimiter(config.LoadRateLimitConfig(), config.NewRedisClient()))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret, users)
	router.RegisterUsers(e, userHandler, cfg.JWTSecret, users)
	router.RegisterAudio(e, audioHandler, cfg.JWTSecret, users)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret, users)

	// Background consumer appends upload/delete events to logs/audio.log.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
