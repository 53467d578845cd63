package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/playgridhq/tictactoe-backend/internal/entity"
	"github.com/playgridhq/tictactoe-backend/internal/repository"
	"github.com/playgridhq/tictactoe-backend/internal/repository/storage"
)

// testEnv wires the services over a throwaway sqlite database, the way the
// application wires them at startup.
type testEnv struct {
	ctx context.Context

	storage *storage.SQLiteStorage

	userRepo repository.UserRepository
	gameRepo repository.GameRepository
	moveRepo repository.MoveRepository

	users    UserService
	games    GameService
	gamePlay GamePlayService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()

	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	require.NoError(t, st.Init(ctx))

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	userRepo := repository.NewUserRepository(st.Connection)
	gameRepo := repository.NewGameRepository(st.Connection)
	moveRepo := repository.NewMoveRepository(st.Connection)

	users := NewUserService(userRepo)

	return &testEnv{
		ctx:      ctx,
		storage:  st,
		userRepo: userRepo,
		gameRepo: gameRepo,
		moveRepo: moveRepo,
		users:    users,
		games:    NewGameService(users, gameRepo),
		gamePlay: NewGamePlayService(logger, users, gameRepo, moveRepo, st),
	}
}

func (that *testEnv) seedUser(t *testing.T, username string) *entity.User {
	t.Helper()

	user := &entity.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, that.userRepo.Save(that.ctx, user))

	return user
}

// startGame creates a game by userOne and joins userTwo, leaving it in
// progress.
func (that *testEnv) startGame(t *testing.T, userOne, userTwo *entity.User) *entity.Game {
	t.Helper()

	game, err := that.games.CreateGame(that.ctx, userOne.ID, entity.CompetitionType, entity.PieceX)
	require.NoError(t, err)

	game, err = that.games.JoinGame(that.ctx, userTwo.ID, game.ID)
	require.NoError(t, err)

	return game
}
