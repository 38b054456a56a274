package store

import (
	"context"

	"social-automator-api/internal/domain"
	"social-automator-api/internal/store/activity"
	"social-automator-api/internal/store/comment"
	"social-automator-api/internal/store/connection"
	"social-automator-api/internal/store/dm"
	"social-automator-api/internal/store/trigger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the Storer interface for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateUser(ctx context.Context, email, name string) (domain.User, error) {
	args := m.Called(ctx, email, name)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockStore) GetUserByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockStore) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) CreateConnection(ctx context.Context, arg connection.CreateConnectionParams) (domain.PlatformConnection, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(domain.PlatformConnection), args.Error(1)
}

func (m *MockStore) GetConnectionByID(ctx context.Context, id int64) (domain.PlatformConnection, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.PlatformConnection), args.Error(1)
}

func (m *MockStore) GetConnectionsForUser(ctx context.Context, userID uuid.UUID) ([]domain.PlatformConnection, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.PlatformConnection), args.Error(1)
}

func (m *MockStore) GetActiveConnections(ctx context.Context) ([]domain.PlatformConnection, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.PlatformConnection), args.Error(1)
}

func (m *MockStore) GetConnectionByAccount(ctx context.Context, platform domain.Platform, accountID string) (domain.PlatformConnection, error) {
	args := m.Called(ctx, platform, accountID)
	return args.Get(0).(domain.PlatformConnection), args.Error(1)
}

func (m *MockStore) UpdateConnection(ctx context.Context, arg connection.UpdateConnectionParams) (domain.PlatformConnection, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(domain.PlatformConnection), args.Error(1)
}

func (m *MockStore) UpdateConnectionTokens(ctx context.Context, arg connection.UpdateTokensParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *MockStore) UpdateConnectionLastSync(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) SetConnectionActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockStore) DeleteConnection(ctx context.Context, id int64, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockStore) CreateTrigger(ctx context.Context, arg trigger.CreateTriggerParams) (domain.KeywordTrigger, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(domain.KeywordTrigger), args.Error(1)
}

func (m *MockStore) GetTriggersForUser(ctx context.Context, userID uuid.UUID) ([]domain.KeywordTrigger, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.KeywordTrigger), args.Error(1)
}

func (m *MockStore) GetActiveTriggersForPlatform(ctx context.Context, userID uuid.UUID, platform domain.Platform) ([]domain.KeywordTrigger, error) {
	args := m.Called(ctx, userID, platform)
	return args.Get(0).([]domain.KeywordTrigger), args.Error(1)
}

func (m *MockStore) UpdateTrigger(ctx context.Context, arg trigger.UpdateTriggerParams) (domain.KeywordTrigger, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(domain.KeywordTrigger), args.Error(1)
}

func (m *MockStore) ToggleTrigger(ctx context.Context, triggerID int64, userID uuid.UUID) (domain.KeywordTrigger, error) {
	args := m.Called(ctx, triggerID, userID)
	return args.Get(0).(domain.KeywordTrigger), args.Error(1)
}

func (m *MockStore) DeleteTrigger(ctx context.Context, triggerID int64, userID uuid.UUID) error {
	args := m.Called(ctx, triggerID, userID)
	return args.Error(0)
}

func (m *MockStore) IncrementTriggerCounters(ctx context.Context, triggerID int64, triggered, replies, dms int) error {
	args := m.Called(ctx, triggerID, triggered, replies, dms)
	return args.Error(0)
}

func (m *MockStore) UpsertComment(ctx context.Context, arg comment.UpsertCommentParams) (domain.Comment, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(domain.Comment), args.Error(1)
}

func (m *MockStore) ClaimComment(ctx context.Context, commentID int64) (bool, error) {
	args := m.Called(ctx, commentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) FinishComment(ctx context.Context, commentID int64) error {
	args := m.Called(ctx, commentID)
	return args.Error(0)
}

func (m *MockStore) MarkResponded(ctx context.Context, arg comment.MarkRespondedParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) SetMatchedTrigger(ctx context.Context, commentID, triggerID int64) error {
	args := m.Called(ctx, commentID, triggerID)
	return args.Error(0)
}

func (m *MockStore) GetCommentByID(ctx context.Context, commentID int64) (domain.Comment, error) {
	args := m.Called(ctx, commentID)
	return args.Get(0).(domain.Comment), args.Error(1)
}

func (m *MockStore) ListComments(ctx context.Context, arg comment.ListCommentsParams) ([]domain.Comment, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]domain.Comment), args.Error(1)
}

func (m *MockStore) CreateDM(ctx context.Context, arg dm.CreateDMParams) (domain.DirectMessage, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(domain.DirectMessage), args.Error(1)
}

func (m *MockStore) MarkDMSent(ctx context.Context, dmID int64, platformMessageID string) error {
	args := m.Called(ctx, dmID, platformMessageID)
	return args.Error(0)
}

func (m *MockStore) MarkDMFailed(ctx context.Context, dmID int64, reason string) error {
	args := m.Called(ctx, dmID, reason)
	return args.Error(0)
}

func (m *MockStore) MarkDMOpened(ctx context.Context, dmID int64) error {
	args := m.Called(ctx, dmID)
	return args.Error(0)
}

func (m *MockStore) MarkDMClicked(ctx context.Context, dmID int64) error {
	args := m.Called(ctx, dmID)
	return args.Error(0)
}

func (m *MockStore) GetDMByPlatformMessageID(ctx context.Context, platform domain.Platform, platformMessageID string) (domain.DirectMessage, error) {
	args := m.Called(ctx, platform, platformMessageID)
	return args.Get(0).(domain.DirectMessage), args.Error(1)
}

func (m *MockStore) ListDMs(ctx context.Context, arg dm.ListDMsParams) ([]domain.DirectMessage, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]domain.DirectMessage), args.Error(1)
}

func (m *MockStore) AppendActivity(ctx context.Context, arg activity.AppendActivityParams) (domain.ActivityLogEntry, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(domain.ActivityLogEntry), args.Error(1)
}

func (m *MockStore) ListActivity(ctx context.Context, arg activity.ListActivityParams) ([]domain.ActivityLogEntry, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]domain.ActivityLogEntry), args.Error(1)
}

func (m *MockStore) GetDashboardStats(ctx context.Context, userID uuid.UUID) (domain.DashboardStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.DashboardStats), args.Error(1)
}

func (m *MockStore) ReserveQuota(ctx context.Context, userID uuid.UUID, platform domain.Platform, cost int) (bool, error) {
	args := m.Called(ctx, userID, platform, cost)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) GetQuota(ctx context.Context, userID uuid.UUID, platform domain.Platform) (domain.APIQuota, error) {
	args := m.Called(ctx, userID, platform)
	return args.Get(0).(domain.APIQuota), args.Error(1)
}

func (m *MockStore) GetQuotasForUser(ctx context.Context, userID uuid.UUID) ([]domain.APIQuota, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.APIQuota), args.Error(1)
}

// Verify MockStore satisfies the interface.
var _ Storer = (*MockStore)(nil)
