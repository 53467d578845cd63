package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
	"github.com/playgridhq/tictactoe-backend/internal/config"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
	"github.com/playgridhq/tictactoe-backend/internal/pkg"
)

const urlUserInfo = "https://www.googleapis.com/oauth2/v2/userinfo"

type AuthHandler interface {
	Register(ctx echo.Context) error
	Login(ctx echo.Context) error
	Logout(ctx echo.Context) error

	GoogleLogin(ctx echo.Context) error
	GoogleCallback(ctx echo.Context) error
}

type fullAuthService interface {
	Register(ctx context.Context, username, email, password string) (*entity.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	LoginExternal(ctx context.Context, user *entity.User) (string, error)
	Logout(ctx context.Context, tokenString string) error
	Authenticate(ctx context.Context, tokenString string) (int64, error)
}

type userService interface {
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
}

type authHandler struct {
	logger *slog.Logger

	oauthConfig *oauth2.Config

	auth fullAuthService
	user userService
}

func NewAuthHandler(logger *slog.Logger, conf *config.Config, auth fullAuthService, user userService) AuthHandler {
	oauthConfig := &oauth2.Config{
		ClientID:     conf.GoogleOAuth.ClientID,
		ClientSecret: conf.GoogleOAuth.ClientSecret,

		RedirectURL: conf.GoogleOAuth.RedirectURL,

		Scopes:   conf.GoogleOAuth.Scopes,
		Endpoint: google.Endpoint,
	}

	return &authHandler{
		logger:      logger.With("component", "auth-handler"),
		oauthConfig: oauthConfig,
		auth:        auth,
		user:        user,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (that *authHandler) Register(ctx echo.Context) error {
	var req registerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if req.Username == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, errorBody("username and password are required"))
	}

	user, err := that.auth.Register(ctx.Request().Context(), req.Username, req.Email, req.Password)
	if errors.Is(err, apperror.ErrAlreadyRegistered) {
		return ctx.JSON(http.StatusBadRequest, errorBody(err.Error()))
	}
	if err != nil {
		that.logger.Error("failed to register user", "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorBody("internal server error"))
	}

	return ctx.JSON(http.StatusCreated, user)
}

func (that *authHandler) Login(ctx echo.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	token, err := that.auth.Login(ctx.Request().Context(), req.Username, req.Password)
	if errors.Is(err, apperror.ErrInvalidCredentials) {
		return ctx.JSON(http.StatusUnauthorized, errorBody(err.Error()))
	}
	if err != nil {
		that.logger.Error("failed to log in user", "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorBody("internal server error"))
	}

	setAuthCookie(ctx, token)

	return ctx.JSON(http.StatusOK, map[string]string{"token": token})
}

func (that *authHandler) Logout(ctx echo.Context) error {
	tokenString := bearerToken(ctx)
	if tokenString == "" {
		return ctx.JSON(http.StatusUnauthorized, errorBody("missing credentials"))
	}

	if err := that.auth.Logout(ctx.Request().Context(), tokenString); err != nil {
		return ctx.JSON(http.StatusUnauthorized, errorBody("invalid or expired token"))
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (that *authHandler) GoogleLogin(ctx echo.Context) error {
	state := pkg.GenerateStateToken()

	ctx.SetCookie(&http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Expires:  time.Now().Add(time.Hour),
		HttpOnly: true,
	})

	authURL := that.oauthConfig.AuthCodeURL(state)

	return ctx.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (that *authHandler) GoogleCallback(ctx echo.Context) error {
	log := that.logger.With("method", "GoogleCallback")

	stateCookie, err := ctx.Cookie("oauthstate")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("state cookie not found"))
	}

	if ctx.QueryParam("state") != stateCookie.Value {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid oauth state"))
	}

	code := ctx.QueryParam("code")
	if code == "" {
		return ctx.JSON(http.StatusBadRequest, errorBody("code not found in request"))
	}

	token, err := that.oauthConfig.Exchange(ctx.Request().Context(), code)
	if err != nil {
		log.Error("failed to exchange code for token", "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorBody("code exchange failed"))
	}

	client := that.oauthConfig.Client(ctx.Request().Context(), token)
	email, err := getUserEmail(client)
	if err != nil {
		log.Error("failed to get user info", "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorBody("failed to get user info"))
	}

	user, err := that.findOrRegister(ctx.Request().Context(), email)
	if err != nil {
		log.Error("failed to resolve user", "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorBody("failed to resolve user"))
	}

	jwtToken, err := that.auth.LoginExternal(ctx.Request().Context(), user)
	if err != nil {
		log.Error("failed to issue token", "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorBody("failed to issue token"))
	}

	setAuthCookie(ctx, jwtToken)

	return ctx.JSON(http.StatusOK, map[string]string{"token": jwtToken})
}

// findOrRegister maps an externally verified email onto a local user,
// creating one with an unguessable password on first login.
func (that *authHandler) findOrRegister(ctx context.Context, email string) (*entity.User, error) {
	user, err := that.user.GetUserByUsername(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	return that.auth.Register(ctx, email, email, pkg.GenerateStateToken())
}

func getUserEmail(client *http.Client) (string, error) {
	resp, err := client.Get(urlUserInfo)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New("userinfo request failed")
	}

	var userInfo struct {
		Email string `json:"email"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return "", err
	}

	return userInfo.Email, nil
}

func setAuthCookie(ctx echo.Context, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
	})
}
