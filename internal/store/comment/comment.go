// Package comment persists ingested comments. The comment row doubles as
// the pipeline's idempotency ledger: ClaimComment is the conditional write
// that makes concurrent processing of one platform comment single-flight,
// and MarkResponded guards the one-way has_responded transition.
package comment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no comment matches the lookup.
var ErrNotFound = errors.New("comment not found")

// DB is the pool behaviour the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// UpsertCommentParams describes one incoming platform comment.
type UpsertCommentParams struct {
	UserID            uuid.UUID
	Platform          domain.Platform
	PlatformCommentID string
	PostID            string
	PostURL           *string
	CommentText       string
	CommenterUsername string
	CommenterUserID   *string
	CommentedAt       time.Time
}

// MarkRespondedParams records a completed response on a comment.
type MarkRespondedParams struct {
	CommentID      int64
	ResponseText   string
	ResponseMethod domain.ResponseMethod
	TriggerID      *int64
}

// ListCommentsParams filters the dashboard comment list.
type ListCommentsParams struct {
	UserID      uuid.UUID
	Platform    domain.Platform // "" = all
	PostID      string          // "" = all
	Unresponded bool
	Limit       int
}

// CommentStore handles comments database operations.
type CommentStore struct {
	db DB
}

// NewCommentStore creates a new CommentStore.
func NewCommentStore(db DB) *CommentStore {
	return &CommentStore{db: db}
}

const commentColumns = `id, user_id, platform, platform_comment_id, post_id, post_url,
       comment_text, commenter_username, commenter_user_id,
       matched_trigger_id, has_responded, response_text, response_method,
       responded_at, processing_state, commented_at, created_at, updated_at`

func scanComment(row pgx.Row) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Platform,
		&c.PlatformCommentID,
		&c.PostID,
		&c.PostURL,
		&c.CommentText,
		&c.CommenterUsername,
		&c.CommenterUserID,
		&c.MatchedTriggerID,
		&c.HasResponded,
		&c.ResponseText,
		&c.ResponseMethod,
		&c.RespondedAt,
		&c.ProcessingState,
		&c.CommentedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// UpsertComment inserts the comment or, when the (user, platform,
// platform_comment_id) key already exists, returns the stored row
// untouched. The returned row's has_responded/processing_state are what
// the dispatcher's idempotency check reads.
func (s *CommentStore) UpsertComment(ctx context.Context, arg UpsertCommentParams) (domain.Comment, error) {
	query := `
    INSERT INTO comments (
        user_id, platform, platform_comment_id, post_id, post_url,
        comment_text, commenter_username, commenter_user_id, commented_at
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9
    )
    ON CONFLICT (user_id, platform, platform_comment_id)
    DO UPDATE SET updated_at = now()
    RETURNING ` + commentColumns + `;
    `

	row := s.db.QueryRow(ctx, query,
		arg.UserID,
		arg.Platform,
		arg.PlatformCommentID,
		arg.PostID,
		arg.PostURL,
		arg.CommentText,
		arg.CommenterUsername,
		arg.CommenterUserID,
		arg.CommentedAt,
	)

	c, err := scanComment(row)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("db scan error: %w", err)
	}
	return c, nil
}

// ClaimComment atomically marks the comment as being processed. Exactly one
// of any number of concurrent callers gets true; everyone else must treat
// the comment as already handled.
func (s *CommentStore) ClaimComment(ctx context.Context, commentID int64) (bool, error) {
	query := `
    UPDATE comments
    SET processing_state = 'processing', updated_at = now()
    WHERE id = $1 AND processing_state = 'idle' AND has_responded = false;
    `

	cmdTag, err := s.db.Exec(ctx, query, commentID)
	if err != nil {
		return false, fmt.Errorf("db exec error: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// FinishComment records that the automation attempt reached a terminal
// state; the comment will not be picked up again.
func (s *CommentStore) FinishComment(ctx context.Context, commentID int64) error {
	query := `
    UPDATE comments
    SET processing_state = 'done', updated_at = now()
    WHERE id = $1;
    `

	if _, err := s.db.Exec(ctx, query, commentID); err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	return nil
}

// MarkResponded flips has_responded exactly once. Returns false when the
// comment had already been responded to.
func (s *CommentStore) MarkResponded(ctx context.Context, arg MarkRespondedParams) (bool, error) {
	query := `
    UPDATE comments
    SET has_responded = true,
        response_text = $1,
        response_method = $2,
        matched_trigger_id = COALESCE($3, matched_trigger_id),
        responded_at = now(),
        updated_at = now()
    WHERE id = $4 AND has_responded = false;
    `

	cmdTag, err := s.db.Exec(ctx, query,
		arg.ResponseText,
		arg.ResponseMethod,
		arg.TriggerID,
		arg.CommentID,
	)
	if err != nil {
		return false, fmt.Errorf("db exec error: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// SetMatchedTrigger records primary-trigger attribution on the comment.
func (s *CommentStore) SetMatchedTrigger(ctx context.Context, commentID, triggerID int64) error {
	query := `
    UPDATE comments
    SET matched_trigger_id = $1, updated_at = now()
    WHERE id = $2;
    `

	if _, err := s.db.Exec(ctx, query, triggerID, commentID); err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	return nil
}

// GetCommentByID ...
func (s *CommentStore) GetCommentByID(ctx context.Context, commentID int64) (domain.Comment, error) {
	query := `
    SELECT ` + commentColumns + `
    FROM comments
    WHERE id = $1;
    `

	c, err := scanComment(s.db.QueryRow(ctx, query, commentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("db scan error: %w", err)
	}
	return c, nil
}

// ListComments returns the filtered dashboard comment list, newest first.
func (s *CommentStore) ListComments(ctx context.Context, arg ListCommentsParams) ([]domain.Comment, error) {
	limit := arg.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	query := `
    SELECT ` + commentColumns + `
    FROM comments
    WHERE user_id = $1
      AND ($2 = '' OR platform = $2)
      AND ($3 = '' OR post_id = $3)
      AND ($4 = false OR has_responded = false)
    ORDER BY commented_at DESC
    LIMIT $5;
    `

	rows, err := s.db.Query(ctx, query, arg.UserID, string(arg.Platform), arg.PostID, arg.Unresponded, limit)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return comments, nil
}
