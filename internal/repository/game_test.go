package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
)

func TestGameRepository_Create(t *testing.T) {
	ctx, st := newTestStorage(t)

	userRepo := NewUserRepository(st.Connection)
	gameRepo := NewGameRepository(st.Connection)

	// Given: a user and a fresh game
	alice := seedUser(t, ctx, userRepo, "alice")
	game := entity.NewGame(alice, entity.CompetitionType, entity.PieceX)

	// When: creating the game
	err := gameRepo.Create(ctx, game)

	// Then: the game gets an id and starts at version 0
	require.NoError(t, err)
	assert.NotZero(t, game.ID)
	assert.Zero(t, game.Version)
}

func TestGameRepository_GetByID(t *testing.T) {
	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, st := newTestStorage(t)

		userRepo := NewUserRepository(st.Connection)
		gameRepo := NewGameRepository(st.Connection)

		alice := seedUser(t, ctx, userRepo, "alice")
		game := entity.NewGame(alice, entity.CompetitionType, entity.PieceO)
		require.NoError(t, gameRepo.Create(ctx, game))

		// When: loading the game with users
		found, err := gameRepo.GetByID(ctx, game.ID, true)

		// Then: the stored fields and the user relation come back
		require.NoError(t, err)
		assert.Equal(t, entity.StatusWaitsForUser, found.Status)
		assert.Equal(t, entity.PieceO, found.UserOnePieceCode)
		require.NotNil(t, found.UserOne)
		assert.Equal(t, "alice", found.UserOne.Username)
		assert.Nil(t, found.UserTwo)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := newTestStorage(t)

		gameRepo := NewGameRepository(st.Connection)

		// When: loading a game that does not exist
		_, err := gameRepo.GetByID(ctx, 9999999, true)

		// Then: a not-found error is returned
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestGameRepository_Save(t *testing.T) {
	t.Run("Save_PersistsJoinAndBumpsVersion", func(t *testing.T) {
		ctx, st := newTestStorage(t)

		userRepo := NewUserRepository(st.Connection)
		gameRepo := NewGameRepository(st.Connection)

		alice := seedUser(t, ctx, userRepo, "alice")
		bob := seedUser(t, ctx, userRepo, "bob")

		game := entity.NewGame(alice, entity.CompetitionType, entity.PieceX)
		require.NoError(t, gameRepo.Create(ctx, game))

		// Given: bob joins the game
		game.UserTwo = bob
		game.Status = entity.StatusInProgress

		// When: saving the game
		err := gameRepo.Save(ctx, game)

		// Then: the join is persisted and the version advanced
		require.NoError(t, err)
		assert.Equal(t, int64(1), game.Version)

		found, err := gameRepo.GetByID(ctx, game.ID, true)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusInProgress, found.Status)
		require.NotNil(t, found.UserTwo)
		assert.Equal(t, bob.ID, found.UserTwo.ID)
	})

	t.Run("Save_ConflictOnStaleVersion", func(t *testing.T) {
		ctx, st := newTestStorage(t)

		userRepo := NewUserRepository(st.Connection)
		gameRepo := NewGameRepository(st.Connection)

		alice := seedUser(t, ctx, userRepo, "alice")
		game := entity.NewGame(alice, entity.CompetitionType, entity.PieceX)
		require.NoError(t, gameRepo.Create(ctx, game))

		// Given: two loaded copies of the same game
		stale, err := gameRepo.GetByID(ctx, game.ID, true)
		require.NoError(t, err)

		// When: the first writer wins
		game.Status = entity.StatusAborted
		require.NoError(t, gameRepo.Save(ctx, game))

		// Then: the second writer's stale version is rejected
		stale.Status = entity.StatusInProgress
		err = gameRepo.Save(ctx, stale)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("Save_PersistsEndedAt", func(t *testing.T) {
		ctx, st := newTestStorage(t)

		userRepo := NewUserRepository(st.Connection)
		gameRepo := NewGameRepository(st.Connection)

		alice := seedUser(t, ctx, userRepo, "alice")
		game := entity.NewGame(alice, entity.CompetitionType, entity.PieceX)
		require.NoError(t, gameRepo.Create(ctx, game))

		endedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		game.Status = entity.StatusAborted
		game.EndedAt = &endedAt

		require.NoError(t, gameRepo.Save(ctx, game))

		found, err := gameRepo.GetByID(ctx, game.ID, false)
		require.NoError(t, err)
		require.NotNil(t, found.EndedAt)
		assert.True(t, found.EndedAt.Equal(endedAt))
	})
}

func TestGameRepository_FindJoinable(t *testing.T) {
	ctx, st := newTestStorage(t)

	userRepo := NewUserRepository(st.Connection)
	gameRepo := NewGameRepository(st.Connection)

	alice := seedUser(t, ctx, userRepo, "alice")
	bob := seedUser(t, ctx, userRepo, "bob")

	// Given: alice's waiting competition game, her computer game, and a
	// waiting game owned by bob
	aliceGame := entity.NewGame(alice, entity.CompetitionType, entity.PieceX)
	require.NoError(t, gameRepo.Create(ctx, aliceGame))

	computerGame := entity.NewGame(alice, entity.ComputerType, entity.PieceX)
	require.NoError(t, gameRepo.Create(ctx, computerGame))

	bobGame := entity.NewGame(bob, entity.CompetitionType, entity.PieceO)
	require.NoError(t, gameRepo.Create(ctx, bobGame))

	// When: listing games bob could join
	games, err := gameRepo.FindJoinable(ctx, bob.ID)

	// Then: only alice's waiting competition game qualifies
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, aliceGame.ID, games[0].ID)
}

func TestGameRepository_FindByUser(t *testing.T) {
	ctx, st := newTestStorage(t)

	userRepo := NewUserRepository(st.Connection)
	gameRepo := NewGameRepository(st.Connection)

	alice := seedUser(t, ctx, userRepo, "alice")
	bob := seedUser(t, ctx, userRepo, "bob")

	// Given: three games alice participates in, created at distinct times
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var created []*entity.Game
	for i := 0; i < 3; i++ {
		game := entity.NewGame(alice, entity.CompetitionType, entity.PieceX)
		game.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, gameRepo.Create(ctx, game))
		created = append(created, game)
	}

	// And: a game alice has nothing to do with
	other := entity.NewGame(bob, entity.CompetitionType, entity.PieceX)
	require.NoError(t, gameRepo.Create(ctx, other))

	// When: listing alice's games newest first
	games, err := gameRepo.FindByUser(ctx, alice.ID, 0, 0)

	// Then: all three come back in descending creation order
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, created[2].ID, games[0].ID)
	assert.Equal(t, created[0].ID, games[2].ID)

	// When: paginating with limit and offset
	page, err := gameRepo.FindByUser(ctx, alice.ID, 1, 1)

	// Then: only the middle game is returned
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, created[1].ID, page[0].ID)
}

func TestGameRepository_FindActiveByUser(t *testing.T) {
	t.Run("FindsWaitingAndInProgressGames", func(t *testing.T) {
		ctx, st := newTestStorage(t)

		userRepo := NewUserRepository(st.Connection)
		gameRepo := NewGameRepository(st.Connection)

		alice := seedUser(t, ctx, userRepo, "alice")
		game := entity.NewGame(alice, entity.CompetitionType, entity.PieceX)
		require.NoError(t, gameRepo.Create(ctx, game))

		// When: looking up alice's active game
		found, err := gameRepo.FindActiveByUser(ctx, alice.ID)

		// Then: the waiting game is active
		require.NoError(t, err)
		assert.Equal(t, game.ID, found.ID)
	})

	t.Run("IgnoresTerminalGames", func(t *testing.T) {
		ctx, st := newTestStorage(t)

		userRepo := NewUserRepository(st.Connection)
		gameRepo := NewGameRepository(st.Connection)

		alice := seedUser(t, ctx, userRepo, "alice")
		game := entity.NewGame(alice, entity.CompetitionType, entity.PieceX)
		require.NoError(t, gameRepo.Create(ctx, game))

		game.Status = entity.StatusAborted
		require.NoError(t, gameRepo.Save(ctx, game))

		// When: looking up alice's active game after the abort
		_, err := gameRepo.FindActiveByUser(ctx, alice.ID)

		// Then: no active game remains
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}
