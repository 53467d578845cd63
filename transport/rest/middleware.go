package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const userIDContextKey = "userID"

type authService interface {
	Authenticate(ctx context.Context, tokenString string) (int64, error)
}

// NewAuthMiddleware authenticates requests via a bearer token or the
// auth_token cookie and stores the user id on the request context.
func NewAuthMiddleware(auth authService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenString := bearerToken(ctx)
			if tokenString == "" {
				return ctx.JSON(http.StatusUnauthorized, errorBody("missing credentials"))
			}

			userID, err := auth.Authenticate(ctx.Request().Context(), tokenString)
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, errorBody("invalid or expired token"))
			}

			ctx.Set(userIDContextKey, userID)

			return next(ctx)
		}
	}
}

func bearerToken(ctx echo.Context) string {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return token
	}

	cookie, err := ctx.Cookie("auth_token")
	if err != nil {
		return ""
	}

	return cookie.Value
}

func currentUserID(ctx echo.Context) int64 {
	userID, _ := ctx.Get(userIDContextKey).(int64)
	return userID
}
