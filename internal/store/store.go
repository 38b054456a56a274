// Package store is the persistence facade. DBStore composes the per-entity
// stores over one pgx pool; everything above the store layer depends on the
// Storer interface only.
package store

import (
	"context"

	"social-automator-api/internal/domain"
	"social-automator-api/internal/store/activity"
	"social-automator-api/internal/store/comment"
	"social-automator-api/internal/store/connection"
	"social-automator-api/internal/store/dm"
	"social-automator-api/internal/store/quota"
	"social-automator-api/internal/store/trigger"
	"social-automator-api/internal/store/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storer is the interface for all database interactions.
type Storer interface {
	CreateUser(ctx context.Context, email, name string) (domain.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	CreateConnection(ctx context.Context, arg connection.CreateConnectionParams) (domain.PlatformConnection, error)
	GetConnectionByID(ctx context.Context, id int64) (domain.PlatformConnection, error)
	GetConnectionsForUser(ctx context.Context, userID uuid.UUID) ([]domain.PlatformConnection, error)
	GetActiveConnections(ctx context.Context) ([]domain.PlatformConnection, error)
	GetConnectionByAccount(ctx context.Context, platform domain.Platform, accountID string) (domain.PlatformConnection, error)
	UpdateConnection(ctx context.Context, arg connection.UpdateConnectionParams) (domain.PlatformConnection, error)
	UpdateConnectionTokens(ctx context.Context, arg connection.UpdateTokensParams) error
	UpdateConnectionLastSync(ctx context.Context, id int64) error
	SetConnectionActive(ctx context.Context, id int64, active bool) error
	DeleteConnection(ctx context.Context, id int64, userID uuid.UUID) error

	CreateTrigger(ctx context.Context, arg trigger.CreateTriggerParams) (domain.KeywordTrigger, error)
	GetTriggersForUser(ctx context.Context, userID uuid.UUID) ([]domain.KeywordTrigger, error)
	GetActiveTriggersForPlatform(ctx context.Context, userID uuid.UUID, platform domain.Platform) ([]domain.KeywordTrigger, error)
	UpdateTrigger(ctx context.Context, arg trigger.UpdateTriggerParams) (domain.KeywordTrigger, error)
	ToggleTrigger(ctx context.Context, triggerID int64, userID uuid.UUID) (domain.KeywordTrigger, error)
	DeleteTrigger(ctx context.Context, triggerID int64, userID uuid.UUID) error
	IncrementTriggerCounters(ctx context.Context, triggerID int64, triggered, replies, dms int) error

	UpsertComment(ctx context.Context, arg comment.UpsertCommentParams) (domain.Comment, error)
	ClaimComment(ctx context.Context, commentID int64) (bool, error)
	FinishComment(ctx context.Context, commentID int64) error
	MarkResponded(ctx context.Context, arg comment.MarkRespondedParams) (bool, error)
	SetMatchedTrigger(ctx context.Context, commentID, triggerID int64) error
	GetCommentByID(ctx context.Context, commentID int64) (domain.Comment, error)
	ListComments(ctx context.Context, arg comment.ListCommentsParams) ([]domain.Comment, error)

	CreateDM(ctx context.Context, arg dm.CreateDMParams) (domain.DirectMessage, error)
	MarkDMSent(ctx context.Context, dmID int64, platformMessageID string) error
	MarkDMFailed(ctx context.Context, dmID int64, reason string) error
	MarkDMOpened(ctx context.Context, dmID int64) error
	MarkDMClicked(ctx context.Context, dmID int64) error
	GetDMByPlatformMessageID(ctx context.Context, platform domain.Platform, platformMessageID string) (domain.DirectMessage, error)
	ListDMs(ctx context.Context, arg dm.ListDMsParams) ([]domain.DirectMessage, error)

	AppendActivity(ctx context.Context, arg activity.AppendActivityParams) (domain.ActivityLogEntry, error)
	ListActivity(ctx context.Context, arg activity.ListActivityParams) ([]domain.ActivityLogEntry, error)
	GetDashboardStats(ctx context.Context, userID uuid.UUID) (domain.DashboardStats, error)

	ReserveQuota(ctx context.Context, userID uuid.UUID, platform domain.Platform, cost int) (bool, error)
	GetQuota(ctx context.Context, userID uuid.UUID, platform domain.Platform) (domain.APIQuota, error)
	GetQuotasForUser(ctx context.Context, userID uuid.UUID) ([]domain.APIQuota, error)
}

// DBStore implements the Storer interface.
type DBStore struct {
	pool *pgxpool.Pool

	users       *user.UserStore
	connections *connection.ConnectionStore
	triggers    *trigger.TriggerStore
	comments    *comment.CommentStore
	dms         *dm.DMStore
	activity    *activity.ActivityStore
	quotas      *quota.QuotaStore
}

// NewStore creates a new DBStore.
func NewStore(pool *pgxpool.Pool) Storer {
	return &DBStore{
		pool:        pool,
		users:       user.NewUserStore(pool),
		connections: connection.NewConnectionStore(pool),
		triggers:    trigger.NewTriggerStore(pool),
		comments:    comment.NewCommentStore(pool),
		dms:         dm.NewDMStore(pool),
		activity:    activity.NewActivityStore(pool),
		quotas:      quota.NewQuotaStore(pool),
	}
}

func (s *DBStore) CreateUser(ctx context.Context, email, name string) (domain.User, error) {
	return s.users.CreateUser(ctx, email, name)
}

func (s *DBStore) GetUserByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *DBStore) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.users.DeleteUser(ctx, userID)
}

func (s *DBStore) CreateConnection(ctx context.Context, arg connection.CreateConnectionParams) (domain.PlatformConnection, error) {
	return s.connections.CreateConnection(ctx, arg)
}

func (s *DBStore) GetConnectionByID(ctx context.Context, id int64) (domain.PlatformConnection, error) {
	return s.connections.GetConnectionByID(ctx, id)
}

func (s *DBStore) GetConnectionsForUser(ctx context.Context, userID uuid.UUID) ([]domain.PlatformConnection, error) {
	return s.connections.GetConnectionsForUser(ctx, userID)
}

func (s *DBStore) GetActiveConnections(ctx context.Context) ([]domain.PlatformConnection, error) {
	return s.connections.GetActiveConnections(ctx)
}

func (s *DBStore) GetConnectionByAccount(ctx context.Context, platform domain.Platform, accountID string) (domain.PlatformConnection, error) {
	return s.connections.GetConnectionByAccount(ctx, platform, accountID)
}

func (s *DBStore) UpdateConnection(ctx context.Context, arg connection.UpdateConnectionParams) (domain.PlatformConnection, error) {
	return s.connections.UpdateConnection(ctx, arg)
}

func (s *DBStore) UpdateConnectionTokens(ctx context.Context, arg connection.UpdateTokensParams) error {
	return s.connections.UpdateConnectionTokens(ctx, arg)
}

func (s *DBStore) UpdateConnectionLastSync(ctx context.Context, id int64) error {
	return s.connections.UpdateConnectionLastSync(ctx, id)
}

func (s *DBStore) SetConnectionActive(ctx context.Context, id int64, active bool) error {
	return s.connections.SetConnectionActive(ctx, id, active)
}

func (s *DBStore) DeleteConnection(ctx context.Context, id int64, userID uuid.UUID) error {
	return s.connections.DeleteConnection(ctx, id, userID)
}

func (s *DBStore) CreateTrigger(ctx context.Context, arg trigger.CreateTriggerParams) (domain.KeywordTrigger, error) {
	return s.triggers.CreateTrigger(ctx, arg)
}

func (s *DBStore) GetTriggersForUser(ctx context.Context, userID uuid.UUID) ([]domain.KeywordTrigger, error) {
	return s.triggers.GetTriggersForUser(ctx, userID)
}

func (s *DBStore) GetActiveTriggersForPlatform(ctx context.Context, userID uuid.UUID, platform domain.Platform) ([]domain.KeywordTrigger, error) {
	return s.triggers.GetActiveTriggersForPlatform(ctx, userID, platform)
}

func (s *DBStore) UpdateTrigger(ctx context.Context, arg trigger.UpdateTriggerParams) (domain.KeywordTrigger, error) {
	return s.triggers.UpdateTrigger(ctx, arg)
}

func (s *DBStore) ToggleTrigger(ctx context.Context, triggerID int64, userID uuid.UUID) (domain.KeywordTrigger, error) {
	return s.triggers.ToggleTrigger(ctx, triggerID, userID)
}

func (s *DBStore) DeleteTrigger(ctx context.Context, triggerID int64, userID uuid.UUID) error {
	return s.triggers.DeleteTrigger(ctx, triggerID, userID)
}

func (s *DBStore) IncrementTriggerCounters(ctx context.Context, triggerID int64, triggered, replies, dms int) error {
	return s.triggers.IncrementTriggerCounters(ctx, triggerID, triggered, replies, dms)
}

func (s *DBStore) UpsertComment(ctx context.Context, arg comment.UpsertCommentParams) (domain.Comment, error) {
	return s.comments.UpsertComment(ctx, arg)
}

func (s *DBStore) ClaimComment(ctx context.Context, commentID int64) (bool, error) {
	return s.comments.ClaimComment(ctx, commentID)
}

func (s *DBStore) FinishComment(ctx context.Context, commentID int64) error {
	return s.comments.FinishComment(ctx, commentID)
}

func (s *DBStore) MarkResponded(ctx context.Context, arg comment.MarkRespondedParams) (bool, error) {
	return s.comments.MarkResponded(ctx, arg)
}

func (s *DBStore) SetMatchedTrigger(ctx context.Context, commentID, triggerID int64) error {
	return s.comments.SetMatchedTrigger(ctx, commentID, triggerID)
}

func (s *DBStore) GetCommentByID(ctx context.Context, commentID int64) (domain.Comment, error) {
	return s.comments.GetCommentByID(ctx, commentID)
}

func (s *DBStore) ListComments(ctx context.Context, arg comment.ListCommentsParams) ([]domain.Comment, error) {
	return s.comments.ListComments(ctx, arg)
}

func (s *DBStore) CreateDM(ctx context.Context, arg dm.CreateDMParams) (domain.DirectMessage, error) {
	return s.dms.CreateDM(ctx, arg)
}

func (s *DBStore) MarkDMSent(ctx context.Context, dmID int64, platformMessageID string) error {
	return s.dms.MarkSent(ctx, dmID, platformMessageID)
}

func (s *DBStore) MarkDMFailed(ctx context.Context, dmID int64, reason string) error {
	return s.dms.MarkFailed(ctx, dmID, reason)
}

func (s *DBStore) MarkDMOpened(ctx context.Context, dmID int64) error {
	return s.dms.MarkOpened(ctx, dmID)
}

func (s *DBStore) MarkDMClicked(ctx context.Context, dmID int64) error {
	return s.dms.MarkClicked(ctx, dmID)
}

func (s *DBStore) GetDMByPlatformMessageID(ctx context.Context, platform domain.Platform, platformMessageID string) (domain.DirectMessage, error) {
	return s.dms.GetDMByPlatformMessageID(ctx, platform, platformMessageID)
}

func (s *DBStore) ListDMs(ctx context.Context, arg dm.ListDMsParams) ([]domain.DirectMessage, error) {
	return s.dms.ListDMs(ctx, arg)
}

func (s *DBStore) AppendActivity(ctx context.Context, arg activity.AppendActivityParams) (domain.ActivityLogEntry, error) {
	return s.activity.AppendActivity(ctx, arg)
}

func (s *DBStore) ListActivity(ctx context.Context, arg activity.ListActivityParams) ([]domain.ActivityLogEntry, error) {
	return s.activity.ListActivity(ctx, arg)
}

func (s *DBStore) GetDashboardStats(ctx context.Context, userID uuid.UUID) (domain.DashboardStats, error) {
	return s.activity.GetDashboardStats(ctx, userID)
}

func (s *DBStore) ReserveQuota(ctx context.Context, userID uuid.UUID, platform domain.Platform, cost int) (bool, error) {
	return s.quotas.ReserveQuota(ctx, userID, platform, cost)
}

func (s *DBStore) GetQuota(ctx context.Context, userID uuid.UUID, platform domain.Platform) (domain.APIQuota, error) {
	return s.quotas.GetQuota(ctx, userID, platform)
}

func (s *DBStore) GetQuotasForUser(ctx context.Context, userID uuid.UUID) ([]domain.APIQuota, error) {
	return s.quotas.GetQuotasForUser(ctx, userID)
}
