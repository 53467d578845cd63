package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playgridhq/tictactoe-backend/internal/config"
	"github.com/playgridhq/tictactoe-backend/internal/repository"
	"github.com/playgridhq/tictactoe-backend/internal/repository/storage"
	"github.com/playgridhq/tictactoe-backend/internal/service"
	"github.com/playgridhq/tictactoe-backend/transport/rest"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite schema: %w", err)
	}

	userRepo := repository.NewUserRepository(sqliteStorage.Connection)
	gameRepo := repository.NewGameRepository(sqliteStorage.Connection)
	moveRepo := repository.NewMoveRepository(sqliteStorage.Connection)
	sessionRepo := repository.NewSessionRepository(redisStorage.Connection)

	sessionTTL := time.Duration(conf.SessionTTLHours) * time.Hour

	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(conf.JWTSecretKey, sessionTTL, userRepo, sessionRepo)
	gameService := service.NewGameService(userService, gameRepo)
	gamePlayService := service.NewGamePlayService(logger, userService, gameRepo, moveRepo, sqliteStorage)

	authHandler := rest.NewAuthHandler(logger, conf, authService, userService)
	gameHandler := rest.NewGameHandler(logger, gameService, gamePlayService)
	pingHandler := rest.NewPingHandler()
	authMW := rest.NewAuthMiddleware(authService)

	server := rest.New(logger, authHandler, gameHandler, pingHandler, authMW)

	log.Info("Starting HTTP server", "port", conf.HTTPPort)
	if err = server.Start(ctx, conf.HTTPPort); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Application stopped")

	return nil
}
