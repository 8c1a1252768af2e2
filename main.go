package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"portfolio-tracker/config"
	"portfolio-tracker/handlers"
	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get database instance")
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&models.User{}, &models.Investment{}, &models.Transaction{}); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	rdb, err := config.OpenRedis(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	auth := middleware.NewAuthenticator(db, cfg.JWTSecret)
	router := handlers.NewRouter(db, auth, handlers.NewRedisRefreshStore(rdb))

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
