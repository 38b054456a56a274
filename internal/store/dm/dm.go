// Package dm persists direct-message send attempts. Status moves forward
// only: pending -> sent -> opened -> clicked, or pending -> failed. The
// guards live in the WHERE clauses so concurrent updates cannot move a
// message backwards.
package dm

import (
	"context"
	"errors"
	"fmt"

	"social-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no message matches the lookup.
var ErrNotFound = errors.New("direct message not found")

// ErrInvalidTransition is returned when a status update would move a
// message backwards.
var ErrInvalidTransition = errors.New("invalid direct message status transition")

// DB is the pool behaviour the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// CreateDMParams describes a pending DM send attempt.
type CreateDMParams struct {
	UserID            uuid.UUID
	Platform          domain.Platform
	RecipientUsername string
	RecipientUserID   *string
	MessageText       string
	KeywordTriggerID  *int64
	RelatedCommentID  *int64
}

// ListDMsParams filters the dashboard DM list.
type ListDMsParams struct {
	UserID   uuid.UUID
	Platform domain.Platform // "" = all
	Status   domain.DMStatus // "" = all
	Limit    int
}

// DMStore handles direct_messages database operations.
type DMStore struct {
	db DB
}

// NewDMStore creates a new DMStore.
func NewDMStore(db DB) *DMStore {
	return &DMStore{db: db}
}

const dmColumns = `id, user_id, platform, platform_message_id,
       recipient_username, recipient_user_id, message_text,
       keyword_trigger_id, status, sent_at, opened_at, clicked_at,
       failure_reason, related_comment_id, created_at, updated_at`

func scanDM(row pgx.Row) (domain.DirectMessage, error) {
	var m domain.DirectMessage
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Platform,
		&m.PlatformMessageID,
		&m.RecipientUsername,
		&m.RecipientUserID,
		&m.MessageText,
		&m.KeywordTriggerID,
		&m.Status,
		&m.SentAt,
		&m.OpenedAt,
		&m.ClickedAt,
		&m.FailureReason,
		&m.RelatedCommentID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

// CreateDM inserts a new attempt in status pending.
func (s *DMStore) CreateDM(ctx context.Context, arg CreateDMParams) (domain.DirectMessage, error) {
	query := `
    INSERT INTO direct_messages (
        user_id, platform, recipient_username, recipient_user_id,
        message_text, keyword_trigger_id, related_comment_id, status
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, 'pending'
    )
    RETURNING ` + dmColumns + `;
    `

	row := s.db.QueryRow(ctx, query,
		arg.UserID,
		arg.Platform,
		arg.RecipientUsername,
		arg.RecipientUserID,
		arg.MessageText,
		arg.KeywordTriggerID,
		arg.RelatedCommentID,
	)

	m, err := scanDM(row)
	if err != nil {
		return domain.DirectMessage{}, fmt.Errorf("db scan error: %w", err)
	}
	return m, nil
}

// MarkSent moves pending -> sent and records the platform message id.
func (s *DMStore) MarkSent(ctx context.Context, dmID int64, platformMessageID string) error {
	query := `
    UPDATE direct_messages
    SET status = 'sent', platform_message_id = $1, sent_at = now(), updated_at = now()
    WHERE id = $2 AND status = 'pending';
    `

	cmdTag, err := s.db.Exec(ctx, query, platformMessageID, dmID)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkFailed moves pending -> failed with a reason.
func (s *DMStore) MarkFailed(ctx context.Context, dmID int64, reason string) error {
	query := `
    UPDATE direct_messages
    SET status = 'failed', failure_reason = $1, updated_at = now()
    WHERE id = $2 AND status = 'pending';
    `

	cmdTag, err := s.db.Exec(ctx, query, reason, dmID)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkOpened moves sent -> opened. Engagement callbacks may arrive more
// than once; a message already past sent is left alone.
func (s *DMStore) MarkOpened(ctx context.Context, dmID int64) error {
	query := `
    UPDATE direct_messages
    SET status = 'opened', opened_at = now(), updated_at = now()
    WHERE id = $1 AND status = 'sent';
    `

	if _, err := s.db.Exec(ctx, query, dmID); err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	return nil
}

// MarkClicked moves sent/opened -> clicked.
func (s *DMStore) MarkClicked(ctx context.Context, dmID int64) error {
	query := `
    UPDATE direct_messages
    SET status = 'clicked', clicked_at = now(), updated_at = now()
    WHERE id = $1 AND status IN ('sent', 'opened');
    `

	if _, err := s.db.Exec(ctx, query, dmID); err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	return nil
}

// GetDMByPlatformMessageID resolves an engagement callback's message
// reference to the stored attempt.
func (s *DMStore) GetDMByPlatformMessageID(ctx context.Context, platform domain.Platform, platformMessageID string) (domain.DirectMessage, error) {
	query := `
    SELECT ` + dmColumns + `
    FROM direct_messages
    WHERE platform = $1 AND platform_message_id = $2;
    `

	m, err := scanDM(s.db.QueryRow(ctx, query, platform, platformMessageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DirectMessage{}, ErrNotFound
		}
		return domain.DirectMessage{}, fmt.Errorf("db scan error: %w", err)
	}
	return m, nil
}

// ListDMs returns the filtered dashboard DM list, newest first.
func (s *DMStore) ListDMs(ctx context.Context, arg ListDMsParams) ([]domain.DirectMessage, error) {
	limit := arg.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := `
    SELECT ` + dmColumns + `
    FROM direct_messages
    WHERE user_id = $1
      AND ($2 = '' OR platform = $2)
      AND ($3 = '' OR status = $3)
    ORDER BY created_at DESC
    LIMIT $4;
    `

	rows, err := s.db.Query(ctx, query, arg.UserID, string(arg.Platform), string(arg.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var messages []domain.DirectMessage
	for rows.Next() {
		m, err := scanDM(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return messages, nil
}
