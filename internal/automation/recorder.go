package automation

import (
	"context"
	"encoding/json"

	"social-automator-api/internal/domain"
	"social-automator-api/internal/store"
	"social-automator-api/internal/store/activity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// recorder writes activity log entries. A failed write is logged and
// swallowed: bookkeeping must never fail a dispatch that already acted.
type recorder struct {
	store store.Storer
	log   *zap.Logger
}

type recordParams struct {
	userID       uuid.UUID
	activityType domain.ActivityType
	platform     domain.Platform
	description  string
	triggerID    *int64
	commentID    *int64
	dmID         *int64
	metadata     map[string]any
	status       domain.ActivityStatus
}

func (r *recorder) record(ctx context.Context, arg recordParams) {
	var metadata json.RawMessage
	if arg.metadata != nil {
		raw, err := json.Marshal(arg.metadata)
		if err != nil {
			r.log.Error("could not encode activity metadata", zap.Error(err))
		} else {
			metadata = raw
		}
	}

	platform := arg.platform
	_, err := r.store.AppendActivity(ctx, activity.AppendActivityParams{
		UserID:           arg.userID,
		ActivityType:     arg.activityType,
		Platform:         &platform,
		Description:      arg.description,
		KeywordTriggerID: arg.triggerID,
		CommentID:        arg.commentID,
		DMID:             arg.dmID,
		Metadata:         metadata,
		Status:           arg.status,
	})
	if err != nil {
		r.log.Error("could not append activity entry",
			zap.String("activity_type", string(arg.activityType)),
			zap.Error(err))
	}
}
