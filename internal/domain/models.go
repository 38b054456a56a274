package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents a dashboard user account
type User struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Email     string    `db:"email"      json:"email"`
	Name      *string   `db:"name"       json:"name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PlatformConnection represents a connected social-platform account.
// Access and refresh tokens are stored AES-GCM encrypted; only the store
// layer touches the ciphertext.
type PlatformConnection struct {
	BaseEntity
	Platform       Platform        `db:"platform"         json:"platform"`
	AccountName    *string         `db:"account_name"     json:"account_name,omitempty"`
	AccountID      *string         `db:"account_id"       json:"account_id,omitempty"`
	AccessToken    []byte          `db:"access_token"     json:"-"`
	RefreshToken   []byte          `db:"refresh_token"    json:"-"`
	TokenExpiresAt *time.Time      `db:"token_expires_at" json:"token_expires_at,omitempty"`
	IsActive       bool            `db:"is_active"        json:"is_active"`
	LastSyncAt     *time.Time      `db:"last_sync_at"     json:"last_sync_at,omitempty"`
	Metadata       json.RawMessage `db:"metadata"         json:"metadata,omitempty"`
}

// TokenExpired reports whether the stored access token has passed its
// expiry. Connections without an expiry never count as expired.
func (c PlatformConnection) TokenExpired(now time.Time) bool {
	return c.TokenExpiresAt != nil && !c.TokenExpiresAt.After(now)
}

// KeywordTrigger is a user-defined keyword rule with its response actions.
// Reply content comes either from CommentVariations or, when UseAI is set,
// from the text-generation service; the two modes are mutually exclusive.
type KeywordTrigger struct {
	BaseEntity
	Keyword           string            `db:"keyword"            json:"keyword"`
	Platforms         []Platform        `db:"platforms"          json:"platforms"`
	IsActive          bool              `db:"is_active"          json:"is_active"`
	SendDM            bool              `db:"send_dm"            json:"send_dm"`
	DMTemplate        *string           `db:"dm_template"        json:"dm_template,omitempty"`
	DMVariables       map[string]string `db:"dm_variables"       json:"dm_variables,omitempty"`
	SendCommentReply  bool              `db:"send_comment_reply" json:"send_comment_reply"`
	CommentVariations []string          `db:"comment_variations" json:"comment_variations"`
	UseAI             bool              `db:"use_ai"             json:"use_ai"`
	TriggeredCount    int               `db:"triggered_count"    json:"triggered_count"`
	DMsSentCount      int               `db:"dms_sent_count"     json:"dms_sent_count"`
	RepliesSentCount  int               `db:"replies_sent_count" json:"replies_sent_count"`
}

// AppliesTo reports whether the trigger is configured for the platform.
func (t KeywordTrigger) AppliesTo(p Platform) bool {
	for _, tp := range t.Platforms {
		if tp == p {
			return true
		}
	}
	return false
}

// Comment is one ingested platform comment. (user_id, platform,
// platform_comment_id) is the natural key and doubles as the idempotency
// ledger: HasResponded flips false -> true exactly once, and
// ProcessingState carries the automation claim.
type Comment struct {
	BaseEntity
	Platform            Platform        `db:"platform"              json:"platform"`
	PlatformCommentID   string          `db:"platform_comment_id"   json:"platform_comment_id"`
	PostID              string          `db:"post_id"               json:"post_id"`
	PostURL             *string         `db:"post_url"              json:"post_url,omitempty"`
	CommentText         string          `db:"comment_text"          json:"comment_text"`
	CommenterUsername   string          `db:"commenter_username"    json:"commenter_username"`
	CommenterUserID     *string         `db:"commenter_user_id"     json:"commenter_user_id,omitempty"`
	MatchedTriggerID    *int64          `db:"matched_trigger_id"    json:"matched_trigger_id,omitempty"`
	HasResponded        bool            `db:"has_responded"         json:"has_responded"`
	ResponseText        *string         `db:"response_text"         json:"response_text,omitempty"`
	ResponseMethod      *ResponseMethod `db:"response_method"       json:"response_method,omitempty"`
	RespondedAt         *time.Time      `db:"responded_at"          json:"responded_at,omitempty"`
	ProcessingState     ProcessingState `db:"processing_state"      json:"processing_state"`
	CommentedAt         time.Time       `db:"commented_at"          json:"commented_at"`
}

// DirectMessage is one DM send attempt. KeywordTriggerID and
// RelatedCommentID are weak references: the trigger or comment may be
// deleted later without cascading here.
type DirectMessage struct {
	BaseEntity
	Platform          Platform   `db:"platform"            json:"platform"`
	PlatformMessageID *string    `db:"platform_message_id" json:"platform_message_id,omitempty"`
	RecipientUsername string     `db:"recipient_username"  json:"recipient_username"`
	RecipientUserID   *string    `db:"recipient_user_id"   json:"recipient_user_id,omitempty"`
	MessageText       string     `db:"message_text"        json:"message_text"`
	KeywordTriggerID  *int64     `db:"keyword_trigger_id"  json:"keyword_trigger_id,omitempty"`
	Status            DMStatus   `db:"status"              json:"status"`
	SentAt            *time.Time `db:"sent_at"             json:"sent_at,omitempty"`
	OpenedAt          *time.Time `db:"opened_at"           json:"opened_at,omitempty"`
	ClickedAt         *time.Time `db:"clicked_at"          json:"clicked_at,omitempty"`
	FailureReason     *string    `db:"failure_reason"      json:"failure_reason,omitempty"`
	RelatedCommentID  *int64     `db:"related_comment_id"  json:"related_comment_id,omitempty"`
}

// ActivityLogEntry is an append-only record of one automation action.
// The core never updates or deletes these rows.
type ActivityLogEntry struct {
	ID               int64           `db:"id"                 json:"id"`
	UserID           uuid.UUID       `db:"user_id"            json:"user_id"`
	ActivityType     ActivityType    `db:"activity_type"      json:"activity_type"`
	Platform         *Platform       `db:"platform"           json:"platform,omitempty"`
	Description      string          `db:"description"        json:"description"`
	KeywordTriggerID *int64          `db:"keyword_trigger_id" json:"keyword_trigger_id,omitempty"`
	CommentID        *int64          `db:"comment_id"         json:"comment_id,omitempty"`
	DMID             *int64          `db:"dm_id"              json:"dm_id,omitempty"`
	Metadata         json.RawMessage `db:"metadata"           json:"metadata,omitempty"`
	Status           ActivityStatus  `db:"status"             json:"status"`
	CreatedAt        time.Time       `db:"created_at"         json:"created_at"`
}

// APIQuota is the per-(user, platform) outbound call budget. quota_used is
// only ever mutated by single-statement conditional arithmetic so that
// concurrent reservations cannot over-subscribe.
type APIQuota struct {
	BaseEntity
	Platform      Platform   `db:"platform"        json:"platform"`
	QuotaLimit    int        `db:"quota_limit"     json:"quota_limit"`
	QuotaUsed     int        `db:"quota_used"      json:"quota_used"`
	QuotaResetAt  time.Time  `db:"quota_reset_at"  json:"quota_reset_at"`
	LastRequestAt *time.Time `db:"last_request_at" json:"last_request_at,omitempty"`
}

// DefaultQuotaLimit returns the default call budget for a platform.
// YouTube's limit is the documented 10k daily units; the Meta platforms get
// an hourly request budget.
func DefaultQuotaLimit(p Platform) int {
	if p == PlatformYouTube {
		return 10000
	}
	return 200
}

// QuotaResetInterval returns how long a quota window lasts.
func QuotaResetInterval(p Platform) time.Duration {
	if p == PlatformYouTube {
		return 24 * time.Hour
	}
	return time.Hour
}

// DashboardStats is the aggregate view backing the dashboard header.
type DashboardStats struct {
	ConnectedPlatforms   int                `json:"connected_platforms"`
	ActiveKeywords       int                `json:"active_keywords"`
	UnrespondedComments  int                `json:"unresponded_comments"`
	TotalComments        int                `json:"total_comments"`
	DMsSent              int                `json:"dms_sent"`
	RecentActivity       []ActivityLogEntry `json:"recent_activity"`
}
