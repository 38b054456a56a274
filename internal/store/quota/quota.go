// Package quota persists the per-(user, platform) outbound call budget.
// ReserveQuota is the only mutation path for quota_used and is built from
// single-statement conditional SQL so concurrent reservations can never
// push usage past the limit.
package quota

import (
	"context"
	"errors"
	"fmt"

	"social-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no quota row matches the lookup.
var ErrNotFound = errors.New("quota not found")

// DB is the pool behaviour the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// QuotaStore handles api_quotas database operations.
type QuotaStore struct {
	db DB
}

// NewQuotaStore creates a new QuotaStore.
func NewQuotaStore(db DB) *QuotaStore {
	return &QuotaStore{db: db}
}

const quotaColumns = `id, user_id, platform, quota_limit, quota_used,
       quota_reset_at, last_request_at, created_at, updated_at`

func scanQuota(row pgx.Row) (domain.APIQuota, error) {
	var q domain.APIQuota
	err := row.Scan(
		&q.ID,
		&q.UserID,
		&q.Platform,
		&q.QuotaLimit,
		&q.QuotaUsed,
		&q.QuotaResetAt,
		&q.LastRequestAt,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	return q, err
}

// ReserveQuota tries to reserve cost units from the user's budget for the
// platform. It provisions the row lazily with the platform default, rolls
// the window forward when the reset time has passed, then attempts the
// conditional increment. Returns false when the budget cannot cover the
// cost; usage is unchanged in that case.
func (s *QuotaStore) ReserveQuota(ctx context.Context, userID uuid.UUID, platform domain.Platform, cost int) (bool, error) {
	provision := `
    INSERT INTO api_quotas (user_id, platform, quota_limit, quota_used, quota_reset_at)
    VALUES ($1, $2, $3, 0, now() + $4::interval)
    ON CONFLICT (user_id, platform) DO NOTHING;
    `

	interval := domain.QuotaResetInterval(platform).String()
	_, err := s.db.Exec(ctx, provision, userID, platform, domain.DefaultQuotaLimit(platform), interval)
	if err != nil {
		return false, fmt.Errorf("db exec error: %w", err)
	}

	reset := `
    UPDATE api_quotas
    SET quota_used = 0, quota_reset_at = now() + $3::interval, updated_at = now()
    WHERE user_id = $1 AND platform = $2 AND quota_reset_at <= now();
    `

	if _, err := s.db.Exec(ctx, reset, userID, platform, interval); err != nil {
		return false, fmt.Errorf("db exec error: %w", err)
	}

	// The limit check lives in the WHERE clause: the row count is the verdict.
	reserve := `
    UPDATE api_quotas
    SET quota_used = quota_used + $3, last_request_at = now(), updated_at = now()
    WHERE user_id = $1 AND platform = $2 AND quota_used + $3 <= quota_limit;
    `

	cmdTag, err := s.db.Exec(ctx, reserve, userID, platform, cost)
	if err != nil {
		return false, fmt.Errorf("db exec error: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// GetQuota returns the current window for one platform.
func (s *QuotaStore) GetQuota(ctx context.Context, userID uuid.UUID, platform domain.Platform) (domain.APIQuota, error) {
	query := `
    SELECT ` + quotaColumns + `
    FROM api_quotas
    WHERE user_id = $1 AND platform = $2;
    `

	q, err := scanQuota(s.db.QueryRow(ctx, query, userID, platform))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.APIQuota{}, ErrNotFound
		}
		return domain.APIQuota{}, fmt.Errorf("db scan error: %w", err)
	}
	return q, nil
}

// GetQuotasForUser returns every quota window the user has touched.
func (s *QuotaStore) GetQuotasForUser(ctx context.Context, userID uuid.UUID) ([]domain.APIQuota, error) {
	query := `
    SELECT ` + quotaColumns + `
    FROM api_quotas
    WHERE user_id = $1
    ORDER BY platform ASC;
    `

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var quotas []domain.APIQuota
	for rows.Next() {
		q, err := scanQuota(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		quotas = append(quotas, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return quotas, nil
}
