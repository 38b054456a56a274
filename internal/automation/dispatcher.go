package automation

import (
	"context"
	"fmt"

	"social-automator-api/internal/apperr"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/platform"
	"social-automator-api/internal/store"
	"social-automator-api/internal/store/comment"
	"social-automator-api/internal/store/dm"

	"go.uber.org/zap"
)

// Outcome is the terminal state of one comment dispatch.
type Outcome string

const (
	OutcomeSkipped         Outcome = "skipped"
	OutcomeNoMatch         Outcome = "no_match"
	OutcomeNoActions       Outcome = "no_actions"
	OutcomeCompleted       Outcome = "completed"
	OutcomePartiallyFailed Outcome = "partially_failed"
	OutcomeFailed          Outcome = "failed"
)

// Result reports what one dispatch did.
type Result struct {
	Outcome   Outcome
	CommentID int64
	ReplySent bool
	DMSent    bool
	ReplyErr  error
	DMErr     error
}

// Dispatcher coordinates one comment through the pipeline: persist,
// claim, match, plan, reserve quota per action, dispatch, record. Action
// failures are isolated from each other; the comment always reaches a
// terminal processing state.
type Dispatcher struct {
	store    store.Storer
	gateways platform.Registry
	throttle *platform.Throttle
	selector *Selector
	retry    platform.RetryConfig
	rec      *recorder
	log      *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(storer store.Storer, gateways platform.Registry, throttle *platform.Throttle, selector *Selector, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:    storer,
		gateways: gateways,
		throttle: throttle,
		selector: selector,
		retry:    platform.DefaultRetryConfig(),
		rec:      &recorder{store: storer, log: log},
		log:      log.With(zap.String("component", "dispatcher")),
	}
}

// ProcessComment runs the full pipeline for one incoming comment. The
// token is the connection's decrypted access token. The returned error is
// reserved for infrastructure failures; action-level failures land in the
// Result.
func (d *Dispatcher) ProcessComment(ctx context.Context, conn domain.PlatformConnection, token string, incoming platform.Comment) (Result, error) {
	stored, err := d.store.UpsertComment(ctx, comment.UpsertCommentParams{
		UserID:            conn.UserID,
		Platform:          conn.Platform,
		PlatformCommentID: incoming.PlatformCommentID,
		PostID:            incoming.PostID,
		PostURL:           incoming.PostURL,
		CommentText:       incoming.Text,
		CommenterUsername: incoming.AuthorUsername,
		CommenterUserID:   incoming.AuthorUserID,
		CommentedAt:       incoming.CommentedAt,
	})
	if err != nil {
		return Result{}, fmt.Errorf("could not upsert comment: %w", err)
	}

	result := Result{CommentID: stored.ID}

	// Fast path: already handled or another flow owns it.
	if stored.HasResponded || stored.ProcessingState != domain.ProcessingIdle {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	claimed, err := d.store.ClaimComment(ctx, stored.ID)
	if err != nil {
		return Result{}, fmt.Errorf("could not claim comment: %w", err)
	}
	if !claimed {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	defer func() {
		if err := d.store.FinishComment(context.WithoutCancel(ctx), stored.ID); err != nil {
			d.log.Error("could not finish comment", zap.Int64("comment_id", stored.ID), zap.Error(err))
		}
	}()

	triggers, err := d.store.GetActiveTriggersForPlatform(ctx, conn.UserID, conn.Platform)
	if err != nil {
		err = fmt.Errorf("could not load triggers: %w", err)
		d.recordPipelineFailure(ctx, conn, stored, err)
		return Result{}, err
	}

	matches := Match(stored.CommentText, triggers)
	if len(matches) == 0 {
		result.Outcome = OutcomeNoMatch
		return result, nil
	}

	// The oldest matching trigger drives dispatch; later matches are
	// recorded but get no actions and no triggered_count bump.
	primary := matches[0]

	if err := d.store.SetMatchedTrigger(ctx, stored.ID, primary.ID); err != nil {
		d.log.Error("could not set matched trigger", zap.Int64("comment_id", stored.ID), zap.Error(err))
	}
	if err := d.store.IncrementTriggerCounters(ctx, primary.ID, 1, 0, 0); err != nil {
		d.log.Error("could not bump triggered count", zap.Int64("trigger_id", primary.ID), zap.Error(err))
	}

	d.rec.record(ctx, recordParams{
		userID:       conn.UserID,
		activityType: domain.ActivityKeywordTriggered,
		platform:     conn.Platform,
		description:  fmt.Sprintf("Keyword %q matched comment from %s", primary.Keyword, stored.CommenterUsername),
		triggerID:    &primary.ID,
		commentID:    &stored.ID,
		status:       domain.ActivitySuccess,
	})
	for _, secondary := range matches[1:] {
		d.rec.record(ctx, recordParams{
			userID:       conn.UserID,
			activityType: domain.ActivityKeywordTriggered,
			platform:     conn.Platform,
			description:  fmt.Sprintf("Keyword %q also matched; %q handled the comment", secondary.Keyword, primary.Keyword),
			triggerID:    &secondary.ID,
			commentID:    &stored.ID,
			metadata:     map[string]any{"secondary": true},
			status:       domain.ActivitySuccess,
		})
	}

	plan := d.selector.SelectResponse(ctx, stored, primary)
	if !plan.SendReply && !plan.SendDM {
		result.Outcome = OutcomeNoActions
		return result, nil
	}

	gw, err := d.gateways.Gateway(conn.Platform)
	if err != nil {
		d.recordPipelineFailure(ctx, conn, stored, err)
		return Result{}, err
	}

	if plan.SendReply {
		result.ReplyErr = d.dispatchReply(ctx, gw, conn, token, stored, primary, plan)
		result.ReplySent = result.ReplyErr == nil
	}
	if plan.SendDM {
		result.DMErr = d.dispatchDM(ctx, gw, conn, token, stored, primary, plan)
		result.DMSent = result.DMErr == nil
	}

	result.Outcome = outcomeFor(plan, result)
	return result, nil
}

func (d *Dispatcher) dispatchReply(ctx context.Context, gw platform.Gateway, conn domain.PlatformConnection, token string, stored domain.Comment, trig domain.KeywordTrigger, plan Plan) error {
	ok, err := d.store.ReserveQuota(ctx, conn.UserID, conn.Platform, platform.ReplyCost(conn.Platform))
	if err != nil {
		err = fmt.Errorf("could not reserve quota: %w", err)
		d.recordActionFailure(ctx, conn, stored, trig, "reply", err)
		return err
	}
	if !ok {
		err := apperr.New(apperr.KindQuotaExceeded, "reply quota exhausted")
		d.recordActionFailure(ctx, conn, stored, trig, "reply", err)
		return err
	}

	if err := d.throttle.Acquire(ctx, conn.Platform); err != nil {
		d.recordActionFailure(ctx, conn, stored, trig, "reply", err)
		return err
	}
	defer d.throttle.Release(conn.Platform)

	err = platform.Retry(ctx, d.retry, func() error {
		_, err := gw.PostReply(ctx, token, stored.PlatformCommentID, plan.ReplyText)
		return err
	})
	if err != nil {
		d.recordActionFailure(ctx, conn, stored, trig, "reply", err)
		return err
	}

	flipped, err := d.store.MarkResponded(ctx, comment.MarkRespondedParams{
		CommentID:      stored.ID,
		ResponseText:   plan.ReplyText,
		ResponseMethod: domain.ResponseAuto,
		TriggerID:      &trig.ID,
	})
	if err != nil {
		d.log.Error("could not mark comment responded", zap.Int64("comment_id", stored.ID), zap.Error(err))
	} else if !flipped {
		d.log.Warn("comment was already marked responded", zap.Int64("comment_id", stored.ID))
	}

	if err := d.store.IncrementTriggerCounters(ctx, trig.ID, 0, 1, 0); err != nil {
		d.log.Error("could not bump reply count", zap.Int64("trigger_id", trig.ID), zap.Error(err))
	}

	d.rec.record(ctx, recordParams{
		userID:       conn.UserID,
		activityType: domain.ActivityCommentReplied,
		platform:     conn.Platform,
		description:  fmt.Sprintf("Replied to comment from %s", stored.CommenterUsername),
		triggerID:    &trig.ID,
		commentID:    &stored.ID,
		status:       domain.ActivitySuccess,
	})
	return nil
}

func (d *Dispatcher) dispatchDM(ctx context.Context, gw platform.Gateway, conn domain.PlatformConnection, token string, stored domain.Comment, trig domain.KeywordTrigger, plan Plan) error {
	if stored.CommenterUserID == nil || *stored.CommenterUserID == "" {
		err := apperr.New(apperr.KindPermanentRejected, "commenter has no addressable user id")
		d.recordActionFailure(ctx, conn, stored, trig, "dm", err)
		return err
	}

	row, err := d.store.CreateDM(ctx, dm.CreateDMParams{
		UserID:            conn.UserID,
		Platform:          conn.Platform,
		RecipientUsername: stored.CommenterUsername,
		RecipientUserID:   stored.CommenterUserID,
		MessageText:       plan.DMText,
		KeywordTriggerID:  &trig.ID,
		RelatedCommentID:  &stored.ID,
	})
	if err != nil {
		err = fmt.Errorf("could not create direct message: %w", err)
		d.recordActionFailure(ctx, conn, stored, trig, "dm", err)
		return err
	}

	ok, err := d.store.ReserveQuota(ctx, conn.UserID, conn.Platform, platform.DMCost(conn.Platform))
	if err != nil {
		err = fmt.Errorf("could not reserve quota: %w", err)
		d.failDM(ctx, conn, stored, trig, row.ID, err)
		return err
	}
	if !ok {
		quotaErr := apperr.New(apperr.KindQuotaExceeded, "dm quota exhausted")
		d.failDM(ctx, conn, stored, trig, row.ID, quotaErr)
		return quotaErr
	}

	if err := d.throttle.Acquire(ctx, conn.Platform); err != nil {
		d.failDM(ctx, conn, stored, trig, row.ID, err)
		return err
	}
	defer d.throttle.Release(conn.Platform)

	// One attempt only. A DM may have been delivered even when the call
	// errors, so it is never retried after transmit.
	messageID, err := gw.SendDirectMessage(ctx, token, *stored.CommenterUserID, plan.DMText)
	if err != nil {
		d.failDM(ctx, conn, stored, trig, row.ID, err)
		return err
	}

	if err := d.store.MarkDMSent(ctx, row.ID, messageID); err != nil {
		d.log.Error("could not mark dm sent", zap.Int64("dm_id", row.ID), zap.Error(err))
	}
	if err := d.store.IncrementTriggerCounters(ctx, trig.ID, 0, 0, 1); err != nil {
		d.log.Error("could not bump dm count", zap.Int64("trigger_id", trig.ID), zap.Error(err))
	}

	d.rec.record(ctx, recordParams{
		userID:       conn.UserID,
		activityType: domain.ActivityDMSent,
		platform:     conn.Platform,
		description:  fmt.Sprintf("Sent DM to %s", stored.CommenterUsername),
		triggerID:    &trig.ID,
		commentID:    &stored.ID,
		dmID:         &row.ID,
		status:       domain.ActivitySuccess,
	})
	return nil
}

func (d *Dispatcher) failDM(ctx context.Context, conn domain.PlatformConnection, stored domain.Comment, trig domain.KeywordTrigger, dmID int64, cause error) {
	// The cause may be the context itself; the bookkeeping still has to land.
	ctx = context.WithoutCancel(ctx)
	if err := d.store.MarkDMFailed(ctx, dmID, cause.Error()); err != nil {
		d.log.Error("could not mark dm failed", zap.Int64("dm_id", dmID), zap.Error(err))
	}
	d.rec.record(ctx, recordParams{
		userID:       conn.UserID,
		activityType: domain.ActivityError,
		platform:     conn.Platform,
		description:  fmt.Sprintf("DM to %s failed: %v", stored.CommenterUsername, cause),
		triggerID:    &trig.ID,
		commentID:    &stored.ID,
		dmID:         &dmID,
		metadata:     map[string]any{"action": "dm", "kind": string(apperr.KindOf(cause))},
		status:       domain.ActivityFailed,
	})
}

func (d *Dispatcher) recordActionFailure(ctx context.Context, conn domain.PlatformConnection, stored domain.Comment, trig domain.KeywordTrigger, action string, cause error) {
	d.rec.record(context.WithoutCancel(ctx), recordParams{
		userID:       conn.UserID,
		activityType: domain.ActivityError,
		platform:     conn.Platform,
		description:  fmt.Sprintf("Could not %s to comment from %s: %v", action, stored.CommenterUsername, cause),
		triggerID:    &trig.ID,
		commentID:    &stored.ID,
		metadata:     map[string]any{"action": action, "kind": string(apperr.KindOf(cause))},
		status:       domain.ActivityFailed,
	})
}

// recordPipelineFailure logs an infrastructure failure that ended the
// dispatch after the claim. The deferred FinishComment will still mark
// the comment processed, so this entry is the only trace of the attempt.
func (d *Dispatcher) recordPipelineFailure(ctx context.Context, conn domain.PlatformConnection, stored domain.Comment, cause error) {
	d.rec.record(context.WithoutCancel(ctx), recordParams{
		userID:       conn.UserID,
		activityType: domain.ActivityError,
		platform:     conn.Platform,
		description:  fmt.Sprintf("Could not process comment from %s: %v", stored.CommenterUsername, cause),
		commentID:    &stored.ID,
		metadata:     map[string]any{"kind": string(apperr.KindOf(cause))},
		status:       domain.ActivityFailed,
	})
}

func outcomeFor(plan Plan, result Result) Outcome {
	succeeded := 0
	failed := 0
	if plan.SendReply {
		if result.ReplySent {
			succeeded++
		} else {
			failed++
		}
	}
	if plan.SendDM {
		if result.DMSent {
			succeeded++
		} else {
			failed++
		}
	}

	switch {
	case failed == 0:
		return OutcomeCompleted
	case succeeded == 0:
		return OutcomeFailed
	default:
		return OutcomePartiallyFailed
	}
}
