package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
}

func New(logger *slog.Logger, auth AuthHandler, game GameHandler, ping PingHandler, authMW echo.MiddlewareFunc) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	e.GET("/ping", ping.Ping)

	e.POST("/api/auth/register", auth.Register)
	e.POST("/api/auth/login", auth.Login)
	e.POST("/api/auth/logout", auth.Logout)
	e.GET("/auth/google/login", auth.GoogleLogin)
	e.GET("/auth/google/callback", auth.GoogleCallback)

	api := e.Group("/api", authMW)
	api.POST("/game", game.CreateGame)
	api.GET("/game/joinable", game.ListJoinable)
	api.GET("/game/mine", game.ListUserGames)
	api.PATCH("/game/:id/join", game.JoinGame)
	api.PATCH("/game/leave", game.LeaveGame)
	api.POST("/game/:id/move", game.SubmitMove)
	api.GET("/game/:id/moves", game.ListMoves)
	api.GET("/game/:id/turn", game.IsUserTurn)

	return &Server{
		logger: logger.With("component", "rest"),
		echo:   e,
	}
}

// Start serves HTTP until ctx is canceled, then shuts down gracefully.
func (that *Server) Start(ctx context.Context, port string) error {
	errCh := make(chan error, 1)

	go func() {
		srv := &http.Server{
			Addr:         ":" + port,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		}

		if err := that.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := that.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}

		return nil
	}
}
