package apperror

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid game state")
	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrPositionTaken = errors.New("position is already taken")
	ErrConflict      = errors.New("game was modified concurrently")

	ErrAlreadyRegistered  = errors.New("user is already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session expired or revoked")
)
