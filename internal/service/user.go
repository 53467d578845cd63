package service

import (
	"context"
	"fmt"

	"github.com/playgridhq/tictactoe-backend/internal/entity"
)

// UserService is the user directory consumed by the game services: it
// resolves identities and never mutates them.
type UserService interface {
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
}

type userRepo interface {
	Save(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}

type userService struct {
	userRepo userRepo
}

func NewUserService(userRepo userRepo) UserService {
	return &userService{
		userRepo: userRepo,
	}
}

func (that *userService) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	user, err := that.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}

	return user, nil
}

func (that *userService) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	user, err := that.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("could not get user by username: %w", err)
	}

	return user, nil
}
