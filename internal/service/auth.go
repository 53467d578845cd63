package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
	"github.com/playgridhq/tictactoe-backend/internal/pkg"
)

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*entity.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	LoginExternal(ctx context.Context, user *entity.User) (string, error)
	Logout(ctx context.Context, tokenString string) error
	Authenticate(ctx context.Context, tokenString string) (int64, error)
}

type sessionRepo interface {
	Create(ctx context.Context, session *entity.Session, ttl time.Duration) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

type authService struct {
	secretKey  string
	sessionTTL time.Duration

	userRepo    userRepo
	sessionRepo sessionRepo
}

func NewAuthService(secretKey string, sessionTTL time.Duration, userRepo userRepo, sessionRepo sessionRepo) AuthService {
	return &authService{
		secretKey:   secretKey,
		sessionTTL:  sessionTTL,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

func (that *authService) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	_, err := that.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyRegistered, username)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err = that.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	return user, nil
}

func (that *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := that.userRepo.GetByUsername(ctx, username)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", apperror.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperror.ErrInvalidCredentials
	}

	return that.issueToken(ctx, user)
}

// LoginExternal issues a token for a user already authenticated by an
// external identity provider.
func (that *authService) LoginExternal(ctx context.Context, user *entity.User) (string, error) {
	return that.issueToken(ctx, user)
}

func (that *authService) issueToken(ctx context.Context, user *entity.User) (string, error) {
	session := &entity.Session{
		ID:        pkg.GenerateSessionID(),
		UserID:    user.ID,
		CreatedAt: time.Now().UTC(),
	}

	if err := that.sessionRepo.Create(ctx, session, that.sessionTTL); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	claims := jwt.MapClaims{}
	claims["sub"] = user.ID
	claims["sid"] = session.ID
	claims["exp"] = time.Now().Add(that.sessionTTL).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(that.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (that *authService) Logout(ctx context.Context, tokenString string) error {
	_, sessionID, err := that.parseToken(tokenString)
	if err != nil {
		return err
	}

	if err = that.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// Authenticate verifies the token signature and checks that its session is
// still alive, returning the authenticated user id.
func (that *authService) Authenticate(ctx context.Context, tokenString string) (int64, error) {
	userID, sessionID, err := that.parseToken(tokenString)
	if err != nil {
		return 0, err
	}

	session, err := that.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to get session: %w", err)
	}

	if session.UserID != userID {
		return 0, apperror.ErrSessionExpired
	}

	return userID, nil
}

func (that *authService) parseToken(tokenString string) (int64, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", errUnexpectedSigningMethod, token.Header["alg"])
		}
		return []byte(that.secretKey), nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", apperror.ErrSessionExpired, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", apperror.ErrSessionExpired
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", apperror.ErrSessionExpired
	}

	sessionID, ok := claims["sid"].(string)
	if !ok {
		return 0, "", apperror.ErrSessionExpired
	}

	return int64(sub), sessionID, nil
}
