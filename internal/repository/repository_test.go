package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/playgridhq/tictactoe-backend/internal/entity"
	"github.com/playgridhq/tictactoe-backend/internal/repository/storage"
)

// newTestStorage opens a throwaway sqlite database with the schema applied.
func newTestStorage(t *testing.T) (context.Context, *storage.SQLiteStorage) {
	t.Helper()

	ctx := context.Background()

	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	require.NoError(t, st.Init(ctx))

	return ctx, st
}

func seedUser(t *testing.T, ctx context.Context, repo UserRepository, username string) *entity.User {
	t.Helper()

	user := &entity.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Save(ctx, user))

	return user
}
