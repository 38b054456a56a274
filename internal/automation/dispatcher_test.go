package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"social-automator-api/internal/apperr"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/platform"
	"social-automator-api/internal/store"
	"social-automator-api/internal/store/activity"
	"social-automator-api/internal/store/comment"
	"social-automator-api/internal/store/dm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	p        domain.Platform
	replyErr error
	dmErr    error
	replies  int
	dms      int
}

func (g *fakeGateway) Platform() domain.Platform { return g.p }

func (g *fakeGateway) FetchComments(ctx context.Context, token, accountID, postRef string) ([]platform.Comment, error) {
	return nil, nil
}

func (g *fakeGateway) PostReply(ctx context.Context, token, commentRef, text string) (string, error) {
	g.replies++
	if g.replyErr != nil {
		return "", g.replyErr
	}
	return "reply-1", nil
}

func (g *fakeGateway) SendDirectMessage(ctx context.Context, token, recipientRef, text string) (string, error) {
	g.dms++
	if g.dmErr != nil {
		return "", g.dmErr
	}
	return "msg-1", nil
}

func newTestDispatcher(mockStore *store.MockStore, gw *fakeGateway) *Dispatcher {
	registry := platform.Registry{gw.p: gw}
	selector := NewSelector(nil, zap.NewNop())
	return NewDispatcher(mockStore, registry, platform.NewThrottle(), selector, zap.NewNop())
}

func testConnection(userID uuid.UUID) domain.PlatformConnection {
	conn := domain.PlatformConnection{Platform: domain.PlatformInstagram, IsActive: true}
	conn.ID = 1
	conn.UserID = userID
	return conn
}

func incomingComment() platform.Comment {
	commenterID := "u-77"
	return platform.Comment{
		PlatformCommentID: "ig-1",
		PostID:            "post-1",
		Text:              "what's the pricing?",
		AuthorUsername:    "interested_user",
		AuthorUserID:      &commenterID,
		CommentedAt:       time.Now(),
	}
}

func storedComment(userID uuid.UUID, responded bool, state domain.ProcessingState) domain.Comment {
	commenterID := "u-77"
	c := domain.Comment{
		Platform:          domain.PlatformInstagram,
		PlatformCommentID: "ig-1",
		PostID:            "post-1",
		CommentText:       "what's the pricing?",
		CommenterUsername: "interested_user",
		CommenterUserID:   &commenterID,
		HasResponded:      responded,
		ProcessingState:   state,
	}
	c.ID = 10
	c.UserID = userID
	return c
}

func replyAndDMTrigger(id int64) domain.KeywordTrigger {
	template := "Hi {{username}}, link: https://example.com"
	t := domain.KeywordTrigger{
		Keyword:           "pricing",
		IsActive:          true,
		SendCommentReply:  true,
		CommentVariations: []string{"Thanks! Check your DMs."},
		SendDM:            true,
		DMTemplate:        &template,
	}
	t.ID = id
	return t
}

func pendingDM(id int64, userID uuid.UUID) domain.DirectMessage {
	m := domain.DirectMessage{Status: domain.DMPending}
	m.ID = id
	m.UserID = userID
	return m
}

func TestDispatcher_SkipsAlreadyRespondedComment(t *testing.T) {
	userID := uuid.New()
	mockStore := new(store.MockStore)
	gw := &fakeGateway{p: domain.PlatformInstagram}
	d := newTestDispatcher(mockStore, gw)

	mockStore.On("UpsertComment", mock.Anything, mock.Anything).
		Return(storedComment(userID, true, domain.ProcessingDone), nil)

	result, err := d.ProcessComment(context.Background(), testConnection(userID), "token", incomingComment())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Zero(t, gw.replies)
	mockStore.AssertNotCalled(t, "ClaimComment", mock.Anything, mock.Anything)
}

func TestDispatcher_SkipsWhenClaimLost(t *testing.T) {
	userID := uuid.New()
	mockStore := new(store.MockStore)
	gw := &fakeGateway{p: domain.PlatformInstagram}
	d := newTestDispatcher(mockStore, gw)

	mockStore.On("UpsertComment", mock.Anything, mock.Anything).
		Return(storedComment(userID, false, domain.ProcessingIdle), nil)
	mockStore.On("ClaimComment", mock.Anything, int64(10)).Return(false, nil)

	result, err := d.ProcessComment(context.Background(), testConnection(userID), "token", incomingComment())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Zero(t, gw.replies)
	mockStore.AssertNotCalled(t, "GetActiveTriggersForPlatform", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_NoMatchFinishesComment(t *testing.T) {
	userID := uuid.New()
	mockStore := new(store.MockStore)
	gw := &fakeGateway{p: domain.PlatformInstagram}
	d := newTestDispatcher(mockStore, gw)

	trig := replyAndDMTrigger(5)
	trig.Keyword = "refund"

	mockStore.On("UpsertComment", mock.Anything, mock.Anything).
		Return(storedComment(userID, false, domain.ProcessingIdle), nil)
	mockStore.On("ClaimComment", mock.Anything, int64(10)).Return(true, nil)
	mockStore.On("GetActiveTriggersForPlatform", mock.Anything, userID, domain.PlatformInstagram).
		Return([]domain.KeywordTrigger{trig}, nil)
	mockStore.On("FinishComment", mock.Anything, int64(10)).Return(nil)

	result, err := d.ProcessComment(context.Background(), testConnection(userID), "token", incomingComment())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatch, result.Outcome)
	mockStore.AssertCalled(t, "FinishComment", mock.Anything, int64(10))
}

func TestDispatcher_FullSuccess(t *testing.T) {
	userID := uuid.New()
	mockStore := new(store.MockStore)
	gw := &fakeGateway{p: domain.PlatformInstagram}
	d := newTestDispatcher(mockStore, gw)

	trig := replyAndDMTrigger(5)

	mockStore.On("UpsertComment", mock.Anything, mock.Anything).
		Return(storedComment(userID, false, domain.ProcessingIdle), nil)
	mockStore.On("ClaimComment", mock.Anything, int64(10)).Return(true, nil)
	mockStore.On("GetActiveTriggersForPlatform", mock.Anything, userID, domain.PlatformInstagram).
		Return([]domain.KeywordTrigger{trig}, nil)
	mockStore.On("SetMatchedTrigger", mock.Anything, int64(10), int64(5)).Return(nil)
	mockStore.On("IncrementTriggerCounters", mock.Anything, int64(5), 1, 0, 0).Return(nil).Once()
	mockStore.On("AppendActivity", mock.Anything, mock.Anything).Return(domain.ActivityLogEntry{}, nil)
	mockStore.On("ReserveQuota", mock.Anything, userID, domain.PlatformInstagram, 1).Return(true, nil).Twice()
	mockStore.On("MarkResponded", mock.Anything, mock.MatchedBy(func(arg comment.MarkRespondedParams) bool {
		return arg.CommentID == 10 && arg.ResponseMethod == domain.ResponseAuto
	})).Return(true, nil)
	mockStore.On("IncrementTriggerCounters", mock.Anything, int64(5), 0, 1, 0).Return(nil).Once()
	mockStore.On("CreateDM", mock.Anything, mock.MatchedBy(func(arg dm.CreateDMParams) bool {
		return arg.RecipientUsername == "interested_user" && *arg.RelatedCommentID == 10
	})).Return(pendingDM(20, userID), nil)
	mockStore.On("MarkDMSent", mock.Anything, int64(20), "msg-1").Return(nil)
	mockStore.On("IncrementTriggerCounters", mock.Anything, int64(5), 0, 0, 1).Return(nil).Once()
	mockStore.On("FinishComment", mock.Anything, int64(10)).Return(nil)

	result, err := d.ProcessComment(context.Background(), testConnection(userID), "token", incomingComment())

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.True(t, result.ReplySent)
	assert.True(t, result.DMSent)
	assert.Equal(t, 1, gw.replies)
	assert.Equal(t, 1, gw.dms)
	mockStore.AssertExpectations(t)
}

func TestDispatcher_PartialFailure_ReplyOKDMRateLimited(t *testing.T) {
	userID := uuid.New()
	mockStore := new(store.MockStore)
	gw := &fakeGateway{
		p:     domain.PlatformInstagram,
		dmErr: apperr.New(apperr.KindRateLimited, "messaging throttled"),
	}
	d := newTestDispatcher(mockStore, gw)

	trig := replyAndDMTrigger(5)

	mockStore.On("UpsertComment", mock.Anything, mock.Anything).
		Return(storedComment(userID, false, domain.ProcessingIdle), nil)
	mockStore.On("ClaimComment", mock.Anything, int64(10)).Return(true, nil)
	mockStore.On("GetActiveTriggersForPlatform", mock.Anything, userID, domain.PlatformInstagram).
		Return([]domain.KeywordTrigger{trig}, nil)
	mockStore.On("SetMatchedTrigger", mock.Anything, int64(10), int64(5)).Return(nil)
	mockStore.On("IncrementTriggerCounters", mock.Anything, int64(5), 1, 0, 0).Return(nil).Once()
	mockStore.On("AppendActivity", mock.Anything, mock.Anything).Return(domain.ActivityLogEntry{}, nil)
	mockStore.On("ReserveQuota", mock.Anything, userID, domain.PlatformInstagram, 1).Return(true, nil).Twice()
	mockStore.On("MarkResponded", mock.Anything, mock.Anything).Return(true, nil)
	mockStore.On("IncrementTriggerCounters", mock.Anything, int64(5), 0, 1, 0).Return(nil).Once()
	mockStore.On("CreateDM", mock.Anything, mock.Anything).Return(pendingDM(20, userID), nil)
	mockStore.On("MarkDMFailed", mock.Anything, int64(20), mock.Anything).Return(nil)
	mockStore.On("FinishComment", mock.Anything, int64(10)).Return(nil)

	result, err := d.ProcessComment(context.Background(), testConnection(userID), "token", incomingComment())

	require.NoError(t, err)
	assert.Equal(t, OutcomePartiallyFailed, result.Outcome)
	assert.True(t, result.ReplySent)
	assert.False(t, result.DMSent)
	assert.True(t, apperr.IsKind(result.DMErr, apperr.KindRateLimited))

	// The DM is attempted exactly once even though the error is retryable.
	assert.Equal(t, 1, gw.dms)
	// The dms_sent counter must not move for a failed DM.
	mockStore.AssertNotCalled(t, "IncrementTriggerCounters", mock.Anything, int64(5), 0, 0, 1)
	mockStore.AssertExpectations(t)
}

func TestDispatcher_QuotaDeniedReply(t *testing.T) {
	userID := uuid.New()
	mockStore := new(store.MockStore)
	gw := &fakeGateway{p: domain.PlatformInstagram}
	d := newTestDispatcher(mockStore, gw)

	trig := replyAndDMTrigger(5)
	trig.SendDM = false

	mockStore.On("UpsertComment", mock.Anything, mock.Anything).
		Return(storedComment(userID, false, domain.ProcessingIdle), nil)
	mockStore.On("ClaimComment", mock.Anything, int64(10)).Return(true, nil)
	mockStore.On("GetActiveTriggersForPlatform", mock.Anything, userID, domain.PlatformInstagram).
		Return([]domain.KeywordTrigger{trig}, nil)
	mockStore.On("SetMatchedTrigger", mock.Anything, int64(10), int64(5)).Return(nil)
	mockStore.On("IncrementTriggerCounters", mock.Anything, int64(5), 1, 0, 0).Return(nil).Once()
	mockStore.On("AppendActivity", mock.Anything, mock.MatchedBy(func(arg activity.AppendActivityParams) bool {
		return true
	})).Return(domain.ActivityLogEntry{}, nil)
	mockStore.On("ReserveQuota", mock.Anything, userID, domain.PlatformInstagram, 1).Return(false, nil)
	mockStore.On("FinishComment", mock.Anything, int64(10)).Return(nil)

	result, err := d.ProcessComment(context.Background(), testConnection(userID), "token", incomingComment())

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, apperr.IsKind(result.ReplyErr, apperr.KindQuotaExceeded))
	assert.Zero(t, gw.replies)
	// A denied reply never flips has_responded.
	mockStore.AssertNotCalled(t, "MarkResponded", mock.Anything, mock.Anything)
}

func TestDispatcher_SecondaryMatchesGetNoActions(t *testing.T) {
	userID := uuid.New()
	mockStore := new(store.MockStore)
	gw := &fakeGateway{p: domain.PlatformInstagram}
	d := newTestDispatcher(mockStore, gw)

	primary := replyAndDMTrigger(5)
	primary.SendDM = false
	secondary := replyAndDMTrigger(6)
	secondary.Keyword = "price"
	secondary.SendDM = false

	mockStore.On("UpsertComment", mock.Anything, mock.Anything).
		Return(storedComment(userID, false, domain.ProcessingIdle), nil)
	mockStore.On("ClaimComment", mock.Anything, int64(10)).Return(true, nil)
	mockStore.On("GetActiveTriggersForPlatform", mock.Anything, userID, domain.PlatformInstagram).
		Return([]domain.KeywordTrigger{primary, secondary}, nil)
	mockStore.On("SetMatchedTrigger", mock.Anything, int64(10), int64(5)).Return(nil)
	mockStore.On("IncrementTriggerCounters", mock.Anything, int64(5), 1, 0, 0).Return(nil).Once()
	mockStore.On("AppendActivity", mock.Anything, mock.Anything).Return(domain.ActivityLogEntry{}, nil)
	mockStore.On("ReserveQuota", mock.Anything, userID, domain.PlatformInstagram, 1).Return(true, nil).Once()
	mockStore.On("MarkResponded", mock.Anything, mock.Anything).Return(true, nil)
	mockStore.On("IncrementTriggerCounters", mock.Anything, int64(5), 0, 1, 0).Return(nil).Once()
	mockStore.On("FinishComment", mock.Anything, int64(10)).Return(nil)

	result, err := d.ProcessComment(context.Background(), testConnection(userID), "token", incomingComment())

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, 1, gw.replies)

	// Only the primary trigger's counters move.
	mockStore.AssertNotCalled(t, "IncrementTriggerCounters", mock.Anything, int64(6), 1, 0, 0)
	mockStore.AssertNotCalled(t, "SetMatchedTrigger", mock.Anything, int64(10), int64(6))
}

func TestDispatcher_TriggerLoadFailureLeavesTrace(t *testing.T) {
	userID := uuid.New()
	mockStore := new(store.MockStore)
	gw := &fakeGateway{p: domain.PlatformInstagram}
	d := newTestDispatcher(mockStore, gw)

	mockStore.On("UpsertComment", mock.Anything, mock.Anything).
		Return(storedComment(userID, false, domain.ProcessingIdle), nil)
	mockStore.On("ClaimComment", mock.Anything, int64(10)).Return(true, nil)
	mockStore.On("GetActiveTriggersForPlatform", mock.Anything, userID, domain.PlatformInstagram).
		Return([]domain.KeywordTrigger(nil), errors.New("connection reset by peer"))
	mockStore.On("AppendActivity", mock.Anything, mock.Anything).Return(domain.ActivityLogEntry{}, nil)
	mockStore.On("FinishComment", mock.Anything, int64(10)).Return(nil)

	_, err := d.ProcessComment(context.Background(), testConnection(userID), "token", incomingComment())

	require.Error(t, err)
	// The comment still reaches its terminal state, so the failure has to
	// land in the activity log or the attempt disappears without trace.
	mockStore.AssertCalled(t, "FinishComment", mock.Anything, int64(10))
	mockStore.AssertCalled(t, "AppendActivity", mock.Anything, mock.MatchedBy(func(arg activity.AppendActivityParams) bool {
		return arg.ActivityType == domain.ActivityError &&
			arg.Status == domain.ActivityFailed &&
			arg.CommentID != nil && *arg.CommentID == 10
	}))
	assert.Zero(t, gw.replies)
}

func TestDispatcher_ThrottleDeniedReplyLeavesTrace(t *testing.T) {
	userID := uuid.New()
	mockStore := new(store.MockStore)
	gw := &fakeGateway{p: domain.PlatformInstagram}

	registry := platform.Registry{gw.p: gw}
	throttle := platform.NewThrottle()
	d := NewDispatcher(mockStore, registry, throttle, NewSelector(nil, zap.NewNop()), zap.NewNop())

	// Hold every instagram slot so Acquire can only fail on the context.
	for i := 0; i < 5; i++ {
		require.NoError(t, throttle.Acquire(context.Background(), domain.PlatformInstagram))
	}
	defer func() {
		for i := 0; i < 5; i++ {
			throttle.Release(domain.PlatformInstagram)
		}
	}()

	trig := replyAndDMTrigger(5)
	trig.SendDM = false

	mockStore.On("UpsertComment", mock.Anything, mock.Anything).
		Return(storedComment(userID, false, domain.ProcessingIdle), nil)
	mockStore.On("ClaimComment", mock.Anything, int64(10)).Return(true, nil)
	mockStore.On("GetActiveTriggersForPlatform", mock.Anything, userID, domain.PlatformInstagram).
		Return([]domain.KeywordTrigger{trig}, nil)
	mockStore.On("SetMatchedTrigger", mock.Anything, int64(10), int64(5)).Return(nil)
	mockStore.On("IncrementTriggerCounters", mock.Anything, int64(5), 1, 0, 0).Return(nil).Once()
	mockStore.On("AppendActivity", mock.Anything, mock.Anything).Return(domain.ActivityLogEntry{}, nil)
	mockStore.On("ReserveQuota", mock.Anything, userID, domain.PlatformInstagram, 1).Return(true, nil)
	mockStore.On("FinishComment", mock.Anything, int64(10)).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := d.ProcessComment(ctx, testConnection(userID), "token", incomingComment())

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, errors.Is(result.ReplyErr, context.Canceled))
	assert.Zero(t, gw.replies)
	mockStore.AssertCalled(t, "AppendActivity", mock.Anything, mock.MatchedBy(func(arg activity.AppendActivityParams) bool {
		return arg.ActivityType == domain.ActivityError &&
			arg.Status == domain.ActivityFailed &&
			arg.KeywordTriggerID != nil && *arg.KeywordTriggerID == 5
	}))
}
