// Package connection persists platform connections. Access and refresh
// tokens are encrypted before they hit the database and stay encrypted in
// the returned rows; callers that need plaintext go through crypto.Decrypt.
package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-automator-api/internal/crypto"
	"social-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no connection matches the lookup.
var ErrNotFound = errors.New("connection not found")

// DB is the pool behaviour the store needs. Satisfied by *pgxpool.Pool and
// by pgxmock in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// CreateConnectionParams contains parameters for connecting an account.
type CreateConnectionParams struct {
	UserID         uuid.UUID
	Platform       domain.Platform
	AccountName    *string
	AccountID      *string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time
	Metadata       json.RawMessage
}

// UpdateConnectionParams carries the PATCHable fields; nil means unchanged.
type UpdateConnectionParams struct {
	ConnectionID int64
	UserID       uuid.UUID
	AccountName  *string
	IsActive     *bool
	Metadata     json.RawMessage
}

// UpdateTokensParams carries refreshed credentials.
type UpdateTokensParams struct {
	ConnectionID    int64
	NewAccessToken  string
	NewRefreshToken string
	NewExpiry       *time.Time
}

// ConnectionStore handles platform_connections database operations.
type ConnectionStore struct {
	db DB
}

// NewConnectionStore creates a new ConnectionStore.
func NewConnectionStore(db DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

const connectionColumns = `id, user_id, platform, account_name, account_id,
       access_token, refresh_token, token_expires_at, is_active,
       last_sync_at, metadata, created_at, updated_at`

func scanConnection(row pgx.Row) (domain.PlatformConnection, error) {
	var c domain.PlatformConnection
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Platform,
		&c.AccountName,
		&c.AccountID,
		&c.AccessToken,
		&c.RefreshToken,
		&c.TokenExpiresAt,
		&c.IsActive,
		&c.LastSyncAt,
		&c.Metadata,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// CreateConnection encrypts the tokens and stores the connection.
func (s *ConnectionStore) CreateConnection(ctx context.Context, arg CreateConnectionParams) (domain.PlatformConnection, error) {
	encryptedAccess, err := crypto.Encrypt([]byte(arg.AccessToken))
	if err != nil {
		return domain.PlatformConnection{}, fmt.Errorf("could not encrypt access token: %w", err)
	}

	var encryptedRefresh []byte
	if arg.RefreshToken != "" {
		encryptedRefresh, err = crypto.Encrypt([]byte(arg.RefreshToken))
		if err != nil {
			return domain.PlatformConnection{}, fmt.Errorf("could not encrypt refresh token: %w", err)
		}
	}

	query := `
    INSERT INTO platform_connections (
        user_id, platform, account_name, account_id,
        access_token, refresh_token, token_expires_at, metadata, is_active
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, true
    )
    RETURNING ` + connectionColumns + `;
    `

	row := s.db.QueryRow(ctx, query,
		arg.UserID,
		arg.Platform,
		arg.AccountName,
		arg.AccountID,
		encryptedAccess,
		encryptedRefresh,
		arg.TokenExpiresAt,
		arg.Metadata,
	)

	conn, err := scanConnection(row)
	if err != nil {
		return domain.PlatformConnection{}, fmt.Errorf("db scan error: %w", err)
	}
	return conn, nil
}

// GetConnectionByID ...
func (s *ConnectionStore) GetConnectionByID(ctx context.Context, id int64) (domain.PlatformConnection, error) {
	query := `
    SELECT ` + connectionColumns + `
    FROM platform_connections
    WHERE id = $1;
    `

	conn, err := scanConnection(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PlatformConnection{}, ErrNotFound
		}
		return domain.PlatformConnection{}, fmt.Errorf("db scan error: %w", err)
	}
	return conn, nil
}

// GetConnectionsForUser returns all connections owned by a user.
func (s *ConnectionStore) GetConnectionsForUser(ctx context.Context, userID uuid.UUID) ([]domain.PlatformConnection, error) {
	query := `
    SELECT ` + connectionColumns + `
    FROM platform_connections
    WHERE user_id = $1
    ORDER BY created_at DESC;
    `
	return s.queryConnections(ctx, query, userID)
}

// GetActiveConnections returns every active connection; this is the
// poller's work list.
func (s *ConnectionStore) GetActiveConnections(ctx context.Context) ([]domain.PlatformConnection, error) {
	query := `
    SELECT ` + connectionColumns + `
    FROM platform_connections
    WHERE is_active = true;
    `
	return s.queryConnections(ctx, query)
}

// GetConnectionByAccount resolves the active connection for a platform
// account id. Used by the webhook ingest path to attribute events.
func (s *ConnectionStore) GetConnectionByAccount(ctx context.Context, platform domain.Platform, accountID string) (domain.PlatformConnection, error) {
	query := `
    SELECT ` + connectionColumns + `
    FROM platform_connections
    WHERE platform = $1 AND account_id = $2 AND is_active = true
    ORDER BY created_at DESC
    LIMIT 1;
    `

	conn, err := scanConnection(s.db.QueryRow(ctx, query, platform, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PlatformConnection{}, ErrNotFound
		}
		return domain.PlatformConnection{}, fmt.Errorf("db scan error: %w", err)
	}
	return conn, nil
}

func (s *ConnectionStore) queryConnections(ctx context.Context, query string, args ...any) ([]domain.PlatformConnection, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var conns []domain.PlatformConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return conns, nil
}

// UpdateConnection applies the PATCHable fields that are set.
func (s *ConnectionStore) UpdateConnection(ctx context.Context, arg UpdateConnectionParams) (domain.PlatformConnection, error) {
	query := `
    UPDATE platform_connections
    SET account_name = COALESCE($1, account_name),
        is_active = COALESCE($2, is_active),
        metadata = COALESCE($3, metadata),
        updated_at = now()
    WHERE id = $4 AND user_id = $5
    RETURNING ` + connectionColumns + `;
    `

	row := s.db.QueryRow(ctx, query,
		arg.AccountName,
		arg.IsActive,
		arg.Metadata,
		arg.ConnectionID,
		arg.UserID,
	)

	conn, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PlatformConnection{}, ErrNotFound
		}
		return domain.PlatformConnection{}, fmt.Errorf("db scan error: %w", err)
	}
	return conn, nil
}

// UpdateConnectionTokens stores refreshed credentials (encrypted).
func (s *ConnectionStore) UpdateConnectionTokens(ctx context.Context, arg UpdateTokensParams) error {
	encryptedAccess, err := crypto.Encrypt([]byte(arg.NewAccessToken))
	if err != nil {
		return fmt.Errorf("could not encrypt new access token: %w", err)
	}

	var query string
	var args []any

	if arg.NewRefreshToken != "" {
		encryptedRefresh, err := crypto.Encrypt([]byte(arg.NewRefreshToken))
		if err != nil {
			return fmt.Errorf("could not encrypt new refresh token: %w", err)
		}

		query = `
        UPDATE platform_connections
        SET access_token = $1, refresh_token = $2, token_expires_at = $3, updated_at = now()
        WHERE id = $4;
        `
		args = []any{encryptedAccess, encryptedRefresh, arg.NewExpiry, arg.ConnectionID}
	} else {
		query = `
        UPDATE platform_connections
        SET access_token = $1, token_expires_at = $2, updated_at = now()
        WHERE id = $3;
        `
		args = []any{encryptedAccess, arg.NewExpiry, arg.ConnectionID}
	}

	cmdTag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateConnectionLastSync stamps a completed poll cycle.
func (s *ConnectionStore) UpdateConnectionLastSync(ctx context.Context, id int64) error {
	query := `
    UPDATE platform_connections
    SET last_sync_at = now(), updated_at = now()
    WHERE id = $1;
    `

	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	return nil
}

// SetConnectionActive flips the activity flag; the worker uses this to
// park connections whose credentials can no longer be refreshed.
func (s *ConnectionStore) SetConnectionActive(ctx context.Context, id int64, active bool) error {
	query := `
    UPDATE platform_connections
    SET is_active = $1, updated_at = now()
    WHERE id = $2;
    `

	if _, err := s.db.Exec(ctx, query, active, id); err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	return nil
}

// DeleteConnection removes a connection owned by the user.
func (s *ConnectionStore) DeleteConnection(ctx context.Context, id int64, userID uuid.UUID) error {
	query := `
    DELETE FROM platform_connections
    WHERE id = $1 AND user_id = $2;
    `

	cmdTag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
