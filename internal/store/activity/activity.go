// Package activity persists the append-only activity log and serves the
// dashboard aggregates built on top of it.
package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"social-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pool behaviour the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// AppendActivityParams describes one log entry.
type AppendActivityParams struct {
	UserID           uuid.UUID
	ActivityType     domain.ActivityType
	Platform         *domain.Platform
	Description      string
	KeywordTriggerID *int64
	CommentID        *int64
	DMID             *int64
	Metadata         json.RawMessage
	Status           domain.ActivityStatus
}

// ListActivityParams filters the activity feed.
type ListActivityParams struct {
	UserID       uuid.UUID
	ActivityType domain.ActivityType // "" = all
	Platform     domain.Platform     // "" = all
	Limit        int
}

// ActivityStore handles activity_log database operations.
type ActivityStore struct {
	db DB
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db DB) *ActivityStore {
	return &ActivityStore{db: db}
}

const activityColumns = `id, user_id, activity_type, platform, description,
       keyword_trigger_id, comment_id, dm_id, metadata, status, created_at`

func scanActivity(row pgx.Row) (domain.ActivityLogEntry, error) {
	var e domain.ActivityLogEntry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.ActivityType,
		&e.Platform,
		&e.Description,
		&e.KeywordTriggerID,
		&e.CommentID,
		&e.DMID,
		&e.Metadata,
		&e.Status,
		&e.CreatedAt,
	)
	return e, err
}

// AppendActivity writes one log entry. Entries are never updated or
// deleted afterwards.
func (s *ActivityStore) AppendActivity(ctx context.Context, arg AppendActivityParams) (domain.ActivityLogEntry, error) {
	query := `
    INSERT INTO activity_log (
        user_id, activity_type, platform, description,
        keyword_trigger_id, comment_id, dm_id, metadata, status
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9
    )
    RETURNING ` + activityColumns + `;
    `

	row := s.db.QueryRow(ctx, query,
		arg.UserID,
		arg.ActivityType,
		arg.Platform,
		arg.Description,
		arg.KeywordTriggerID,
		arg.CommentID,
		arg.DMID,
		arg.Metadata,
		arg.Status,
	)

	e, err := scanActivity(row)
	if err != nil {
		return domain.ActivityLogEntry{}, fmt.Errorf("db scan error: %w", err)
	}
	return e, nil
}

// ListActivity returns the filtered feed, newest first.
func (s *ActivityStore) ListActivity(ctx context.Context, arg ListActivityParams) ([]domain.ActivityLogEntry, error) {
	limit := arg.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
    SELECT ` + activityColumns + `
    FROM activity_log
    WHERE user_id = $1
      AND ($2 = '' OR activity_type = $2)
      AND ($3 = '' OR platform = $3)
    ORDER BY created_at DESC
    LIMIT $4;
    `

	rows, err := s.db.Query(ctx, query, arg.UserID, string(arg.ActivityType), string(arg.Platform), limit)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var entries []domain.ActivityLogEntry
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return entries, nil
}

// GetDashboardStats aggregates the dashboard header counters in one
// round trip, then attaches the recent activity feed.
func (s *ActivityStore) GetDashboardStats(ctx context.Context, userID uuid.UUID) (domain.DashboardStats, error) {
	query := `
    SELECT
        (SELECT count(*) FROM platform_connections WHERE user_id = $1 AND is_active = true),
        (SELECT count(*) FROM keyword_triggers WHERE user_id = $1 AND is_active = true),
        (SELECT count(*) FROM comments WHERE user_id = $1 AND has_responded = false),
        (SELECT count(*) FROM comments WHERE user_id = $1),
        (SELECT count(*) FROM direct_messages WHERE user_id = $1 AND status IN ('sent', 'opened', 'clicked'));
    `

	var stats domain.DashboardStats
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&stats.ConnectedPlatforms,
		&stats.ActiveKeywords,
		&stats.UnrespondedComments,
		&stats.TotalComments,
		&stats.DMsSent,
	)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("db scan error: %w", err)
	}

	recent, err := s.ListActivity(ctx, ListActivityParams{UserID: userID, Limit: 10})
	if err != nil {
		return domain.DashboardStats{}, err
	}
	stats.RecentActivity = recent

	return stats, nil
}
