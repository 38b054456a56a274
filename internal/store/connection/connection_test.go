package connection

import (
	"context"
	"testing"
	"time"

	"social-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConnectionStore(t *testing.T) (*ConnectionStore, pgxmock.PgxPoolIface) {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	return NewConnectionStore(mockPool), mockPool
}

var connectionTestColumns = []string{
	"id", "user_id", "platform", "account_name", "account_id",
	"access_token", "refresh_token", "token_expires_at", "is_active",
	"last_sync_at", "metadata", "created_at", "updated_at",
}

func connectionRow(id int64, userID uuid.UUID, platform domain.Platform, active bool) []any {
	name := "brandaccount"
	accountID := "17841400000000"
	return []any{
		id, userID, platform, &name, &accountID,
		[]byte("enc-access"), []byte("enc-refresh"), (*time.Time)(nil), active,
		(*time.Time)(nil), []byte(`{}`), time.Now(), time.Now(),
	}
}

func TestConnectionStore_CreateConnection(t *testing.T) {
	store, mockPool := setupConnectionStore(t)
	defer mockPool.Close()

	userID := uuid.New()

	rows := pgxmock.NewRows(connectionTestColumns).
		AddRow(connectionRow(1, userID, domain.PlatformInstagram, true)...)

	mockPool.ExpectQuery("^INSERT INTO platform_connections").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(rows)

	conn, err := store.CreateConnection(context.Background(), CreateConnectionParams{
		UserID:      userID,
		Platform:    domain.PlatformInstagram,
		AccessToken: "IGQVJ-token",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), conn.ID)
	assert.Equal(t, domain.PlatformInstagram, conn.Platform)
	assert.True(t, conn.IsActive)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestConnectionStore_GetActiveConnections(t *testing.T) {
	store, mockPool := setupConnectionStore(t)
	defer mockPool.Close()

	userID := uuid.New()
	rows := pgxmock.NewRows(connectionTestColumns).
		AddRow(connectionRow(1, userID, domain.PlatformInstagram, true)...).
		AddRow(connectionRow(2, userID, domain.PlatformYouTube, true)...)

	mockPool.ExpectQuery("^SELECT (.+) FROM platform_connections").
		WillReturnRows(rows)

	conns, err := store.GetActiveConnections(context.Background())

	assert.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, domain.PlatformYouTube, conns[1].Platform)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestConnectionStore_GetConnectionByAccount(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		store, mockPool := setupConnectionStore(t)
		defer mockPool.Close()

		userID := uuid.New()
		rows := pgxmock.NewRows(connectionTestColumns).
			AddRow(connectionRow(7, userID, domain.PlatformFacebook, true)...)

		mockPool.ExpectQuery("^SELECT (.+) FROM platform_connections").
			WithArgs(domain.PlatformFacebook, "page-123").
			WillReturnRows(rows)

		conn, err := store.GetConnectionByAccount(context.Background(), domain.PlatformFacebook, "page-123")

		assert.NoError(t, err)
		assert.Equal(t, int64(7), conn.ID)
	})

	t.Run("Not Found", func(t *testing.T) {
		store, mockPool := setupConnectionStore(t)
		defer mockPool.Close()

		mockPool.ExpectQuery("^SELECT (.+) FROM platform_connections").
			WithArgs(domain.PlatformFacebook, "missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := store.GetConnectionByAccount(context.Background(), domain.PlatformFacebook, "missing")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConnectionStore_UpdateConnectionTokens(t *testing.T) {
	t.Run("With Refresh Token", func(t *testing.T) {
		store, mockPool := setupConnectionStore(t)
		defer mockPool.Close()

		mockPool.ExpectExec("^UPDATE platform_connections").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := store.UpdateConnectionTokens(context.Background(), UpdateTokensParams{
			ConnectionID:    3,
			NewAccessToken:  "new-access",
			NewRefreshToken: "new-refresh",
		})
		assert.NoError(t, err)
	})

	t.Run("Unknown Connection", func(t *testing.T) {
		store, mockPool := setupConnectionStore(t)
		defer mockPool.Close()

		mockPool.ExpectExec("^UPDATE platform_connections").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := store.UpdateConnectionTokens(context.Background(), UpdateTokensParams{
			ConnectionID:   99,
			NewAccessToken: "new-access",
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConnectionStore_DeleteConnection(t *testing.T) {
	store, mockPool := setupConnectionStore(t)
	defer mockPool.Close()

	userID := uuid.New()

	mockPool.ExpectExec("^DELETE FROM platform_connections").
		WithArgs(int64(4), userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := store.DeleteConnection(context.Background(), 4, userID)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
