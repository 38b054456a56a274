// Package trigger persists keyword triggers. The platforms, variations and
// DM-variable fields live as jsonb; counter updates are single-statement
// atomic adds so concurrent dispatch flows can never lose increments.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"social-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no trigger matches the lookup.
var ErrNotFound = errors.New("trigger not found")

// DB is the pool behaviour the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// CreateTriggerParams contains parameters for creating keyword triggers.
type CreateTriggerParams struct {
	UserID            uuid.UUID
	Keyword           string
	Platforms         []domain.Platform
	SendDM            bool
	DMTemplate        *string
	DMVariables       map[string]string
	SendCommentReply  bool
	CommentVariations []string
	UseAI             bool
}

// UpdateTriggerParams carries the PATCHable fields; nil means unchanged.
type UpdateTriggerParams struct {
	TriggerID         int64
	UserID            uuid.UUID
	Keyword           *string
	Platforms         []domain.Platform
	SendDM            *bool
	DMTemplate        *string
	DMVariables       map[string]string
	SendCommentReply  *bool
	CommentVariations []string
	UseAI             *bool
}

// TriggerStore handles keyword_triggers database operations.
type TriggerStore struct {
	db DB
}

// NewTriggerStore creates a new TriggerStore.
func NewTriggerStore(db DB) *TriggerStore {
	return &TriggerStore{db: db}
}

const triggerColumns = `id, user_id, keyword, platforms, is_active,
       send_dm, dm_template, dm_variables,
       send_comment_reply, comment_variations, use_ai,
       triggered_count, dms_sent_count, replies_sent_count,
       created_at, updated_at`

func scanTrigger(row pgx.Row) (domain.KeywordTrigger, error) {
	var t domain.KeywordTrigger
	var platformsRaw, variablesRaw, variationsRaw []byte

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Keyword,
		&platformsRaw,
		&t.IsActive,
		&t.SendDM,
		&t.DMTemplate,
		&variablesRaw,
		&t.SendCommentReply,
		&variationsRaw,
		&t.UseAI,
		&t.TriggeredCount,
		&t.DMsSentCount,
		&t.RepliesSentCount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.KeywordTrigger{}, err
	}

	if len(platformsRaw) > 0 {
		if err := json.Unmarshal(platformsRaw, &t.Platforms); err != nil {
			return domain.KeywordTrigger{}, fmt.Errorf("could not decode platforms: %w", err)
		}
	}
	if len(variablesRaw) > 0 {
		if err := json.Unmarshal(variablesRaw, &t.DMVariables); err != nil {
			return domain.KeywordTrigger{}, fmt.Errorf("could not decode dm_variables: %w", err)
		}
	}
	if len(variationsRaw) > 0 {
		if err := json.Unmarshal(variationsRaw, &t.CommentVariations); err != nil {
			return domain.KeywordTrigger{}, fmt.Errorf("could not decode comment_variations: %w", err)
		}
	}

	return t, nil
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// CreateTrigger creates a new keyword trigger.
func (s *TriggerStore) CreateTrigger(ctx context.Context, arg CreateTriggerParams) (domain.KeywordTrigger, error) {
	platformsJSON, err := json.Marshal(arg.Platforms)
	if err != nil {
		return domain.KeywordTrigger{}, fmt.Errorf("could not encode platforms: %w", err)
	}
	variationsJSON, err := json.Marshal(arg.CommentVariations)
	if err != nil {
		return domain.KeywordTrigger{}, fmt.Errorf("could not encode comment_variations: %w", err)
	}
	variablesJSON, err := marshalJSON(arg.DMVariables)
	if err != nil {
		return domain.KeywordTrigger{}, fmt.Errorf("could not encode dm_variables: %w", err)
	}

	query := `
    INSERT INTO keyword_triggers (
        user_id, keyword, platforms, send_dm, dm_template, dm_variables,
        send_comment_reply, comment_variations, use_ai
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9
    )
    RETURNING ` + triggerColumns + `;
    `

	row := s.db.QueryRow(ctx, query,
		arg.UserID,
		arg.Keyword,
		platformsJSON,
		arg.SendDM,
		arg.DMTemplate,
		variablesJSON,
		arg.SendCommentReply,
		variationsJSON,
		arg.UseAI,
	)

	t, err := scanTrigger(row)
	if err != nil {
		return domain.KeywordTrigger{}, fmt.Errorf("db scan error: %w", err)
	}
	return t, nil
}

// GetTriggersForUser returns all triggers owned by a user, newest first.
func (s *TriggerStore) GetTriggersForUser(ctx context.Context, userID uuid.UUID) ([]domain.KeywordTrigger, error) {
	query := `
    SELECT ` + triggerColumns + `
    FROM keyword_triggers
    WHERE user_id = $1
    ORDER BY created_at DESC;
    `
	return s.queryTriggers(ctx, query, userID)
}

// GetActiveTriggersForPlatform returns the matcher's input set: active
// triggers whose platform list contains the platform, ordered by creation
// time ascending (first-created wins primary attribution).
func (s *TriggerStore) GetActiveTriggersForPlatform(ctx context.Context, userID uuid.UUID, platform domain.Platform) ([]domain.KeywordTrigger, error) {
	platformJSON, err := json.Marshal([]domain.Platform{platform})
	if err != nil {
		return nil, fmt.Errorf("could not encode platform: %w", err)
	}

	query := `
    SELECT ` + triggerColumns + `
    FROM keyword_triggers
    WHERE user_id = $1 AND is_active = true AND platforms @> $2
    ORDER BY created_at ASC;
    `
	return s.queryTriggers(ctx, query, userID, platformJSON)
}

func (s *TriggerStore) queryTriggers(ctx context.Context, query string, args ...any) ([]domain.KeywordTrigger, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var triggers []domain.KeywordTrigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		triggers = append(triggers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return triggers, nil
}

// UpdateTrigger applies the PATCHable fields that are set.
func (s *TriggerStore) UpdateTrigger(ctx context.Context, arg UpdateTriggerParams) (domain.KeywordTrigger, error) {
	platformsJSON, err := marshalJSON(arg.Platforms)
	if err != nil {
		return domain.KeywordTrigger{}, fmt.Errorf("could not encode platforms: %w", err)
	}
	variationsJSON, err := marshalJSON(arg.CommentVariations)
	if err != nil {
		return domain.KeywordTrigger{}, fmt.Errorf("could not encode comment_variations: %w", err)
	}
	variablesJSON, err := marshalJSON(arg.DMVariables)
	if err != nil {
		return domain.KeywordTrigger{}, fmt.Errorf("could not encode dm_variables: %w", err)
	}

	query := `
    UPDATE keyword_triggers
    SET keyword = COALESCE($1, keyword),
        platforms = COALESCE($2, platforms),
        send_dm = COALESCE($3, send_dm),
        dm_template = COALESCE($4, dm_template),
        dm_variables = COALESCE($5, dm_variables),
        send_comment_reply = COALESCE($6, send_comment_reply),
        comment_variations = COALESCE($7, comment_variations),
        use_ai = COALESCE($8, use_ai),
        updated_at = now()
    WHERE id = $9 AND user_id = $10
    RETURNING ` + triggerColumns + `;
    `

	row := s.db.QueryRow(ctx, query,
		arg.Keyword,
		platformsJSON,
		arg.SendDM,
		arg.DMTemplate,
		variablesJSON,
		arg.SendCommentReply,
		variationsJSON,
		arg.UseAI,
		arg.TriggerID,
		arg.UserID,
	)

	t, err := scanTrigger(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.KeywordTrigger{}, ErrNotFound
		}
		return domain.KeywordTrigger{}, fmt.Errorf("db scan error: %w", err)
	}
	return t, nil
}

// ToggleTrigger flips the is_active boolean.
func (s *TriggerStore) ToggleTrigger(ctx context.Context, triggerID int64, userID uuid.UUID) (domain.KeywordTrigger, error) {
	query := `
    UPDATE keyword_triggers
    SET is_active = NOT is_active, updated_at = now()
    WHERE id = $1 AND user_id = $2
    RETURNING ` + triggerColumns + `;
    `

	t, err := scanTrigger(s.db.QueryRow(ctx, query, triggerID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.KeywordTrigger{}, ErrNotFound
		}
		return domain.KeywordTrigger{}, fmt.Errorf("db scan error: %w", err)
	}
	return t, nil
}

// DeleteTrigger removes a trigger owned by the user.
func (s *TriggerStore) DeleteTrigger(ctx context.Context, triggerID int64, userID uuid.UUID) error {
	query := `
    DELETE FROM keyword_triggers
    WHERE id = $1 AND user_id = $2;
    `

	cmdTag, err := s.db.Exec(ctx, query, triggerID, userID)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementTriggerCounters bumps the trigger's counters atomically. Deltas
// of zero leave the corresponding counter untouched. This must stay a
// single statement: concurrent flows increment without coordination.
func (s *TriggerStore) IncrementTriggerCounters(ctx context.Context, triggerID int64, triggered, replies, dms int) error {
	query := `
    UPDATE keyword_triggers
    SET triggered_count = triggered_count + $1,
        replies_sent_count = replies_sent_count + $2,
        dms_sent_count = dms_sent_count + $3,
        updated_at = now()
    WHERE id = $4;
    `

	cmdTag, err := s.db.Exec(ctx, query, triggered, replies, dms, triggerID)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Trigger deleted mid-flight; counters are a weak reference, not an error.
		return nil
	}
	return nil
}
