// Package webhook receives Meta's push notifications: comment events feed
// the dispatcher without waiting for the next poll cycle, and messaging
// events advance DM engagement status. Webhook delivery is best-effort on
// Meta's side; the poller remains the source of truth.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/automation"
	"social-automator-api/internal/crypto"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/platform"
	"social-automator-api/internal/store"
	connstore "social-automator-api/internal/store/connection"
	dmstore "social-automator-api/internal/store/dm"

	"go.uber.org/zap"
)

// commentDispatcher is the slice of the automation dispatcher the ingest
// handler needs.
type commentDispatcher interface {
	ProcessComment(ctx context.Context, conn domain.PlatformConnection, token string, incoming platform.Comment) (automation.Result, error)
}

type metaPayload struct {
	Object string      `json:"object"`
	Entry  []metaEntry `json:"entry"`
}

type metaEntry struct {
	ID        string          `json:"id"`
	Time      int64           `json:"time"`
	Changes   []metaChange    `json:"changes"`
	Messaging []metaMessaging `json:"messaging"`
}

type metaChange struct {
	Field string          `json:"field"`
	Value metaChangeValue `json:"value"`
}

type metaChangeValue struct {
	ID          string    `json:"id"`
	CommentID   string    `json:"comment_id"`
	Text        string    `json:"text"`
	Message     string    `json:"message"`
	CreatedTime int64     `json:"created_time"`
	From        *metaFrom `json:"from"`
	Media       *struct {
		ID string `json:"id"`
	} `json:"media"`
	PostID string `json:"post_id"`
}

type metaFrom struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type metaMessaging struct {
	Read *struct {
		MID string `json:"mid"`
	} `json:"read"`
	Postback *struct {
		MID string `json:"mid"`
	} `json:"postback"`
}

// objectPlatform maps Meta's webhook object names onto our platforms.
func objectPlatform(object string) (domain.Platform, bool) {
	switch object {
	case "instagram":
		return domain.PlatformInstagram, true
	case "page":
		return domain.PlatformFacebook, true
	case "threads":
		return domain.PlatformThreads, true
	}
	return "", false
}

// HandleVerify answers Meta's subscription handshake: echo hub.challenge
// when the verify token matches WEBHOOK_VERIFY_TOKEN.
func HandleVerify(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		verifyToken := os.Getenv("WEBHOOK_VERIFY_TOKEN")

		if q.Get("hub.mode") != "subscribe" || verifyToken == "" || q.Get("hub.verify_token") != verifyToken {
			log.Warn("webhook verification rejected",
				zap.String("mode", q.Get("hub.mode")))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
	}
}

// HandleIngest processes a webhook delivery. Meta retries on non-2xx, so
// per-event failures are logged and the delivery is still acknowledged;
// anything missed here is picked up by the poller.
func HandleIngest(storer store.Storer, disp commentDispatcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload metaPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Invalid payload", log)
			return
		}

		p, ok := objectPlatform(payload.Object)
		if !ok {
			common.WriteJSONError(w, http.StatusBadRequest, "Unknown webhook object", log)
			return
		}

		for _, entry := range payload.Entry {
			for _, change := range entry.Changes {
				if change.Field != "comments" && change.Field != "feed" {
					continue
				}
				if err := ingestComment(r.Context(), storer, disp, p, entry.ID, change.Value, log); err != nil {
					log.Warn("webhook comment ingest failed",
						zap.String("platform", string(p)),
						zap.String("account_id", entry.ID),
						zap.Error(err))
				}
			}
			for _, msg := range entry.Messaging {
				advanceDM(r.Context(), storer, p, msg, log)
			}
		}

		common.WriteJSON(w, http.StatusOK, map[string]string{"status": "received"}, log)
	}
}

func ingestComment(ctx context.Context, storer store.Storer, disp commentDispatcher, p domain.Platform, accountID string, v metaChangeValue, log *zap.Logger) error {
	conn, err := storer.GetConnectionByAccount(ctx, p, accountID)
	if err != nil {
		if errors.Is(err, connstore.ErrNotFound) {
			// Not our account; Meta fans deliveries out per app, not per user.
			return nil
		}
		return err
	}
	if !conn.IsActive {
		return nil
	}

	token, err := crypto.Decrypt(conn.AccessToken)
	if err != nil {
		return err
	}

	commentID := v.CommentID
	if commentID == "" {
		commentID = v.ID
	}
	text := v.Text
	if text == "" {
		text = v.Message
	}
	postID := v.PostID
	if postID == "" && v.Media != nil {
		postID = v.Media.ID
	}

	incoming := platform.Comment{
		PlatformCommentID: commentID,
		PostID:            postID,
		Text:              text,
		CommentedAt:       time.Unix(v.CreatedTime, 0),
	}
	if v.CreatedTime == 0 {
		incoming.CommentedAt = time.Now()
	}
	if v.From != nil {
		incoming.AuthorUsername = v.From.Username
		if incoming.AuthorUsername == "" {
			incoming.AuthorUsername = v.From.Name
		}
		if v.From.ID != "" {
			id := v.From.ID
			incoming.AuthorUserID = &id
		}
	}

	result, err := disp.ProcessComment(ctx, conn, string(token), incoming)
	if err != nil {
		return err
	}

	log.Info("webhook comment processed",
		zap.String("platform", string(p)),
		zap.String("platform_comment_id", commentID),
		zap.String("outcome", string(result.Outcome)))
	return nil
}

func advanceDM(ctx context.Context, storer store.Storer, p domain.Platform, msg metaMessaging, log *zap.Logger) {
	var mid string
	var advance func(context.Context, int64) error

	switch {
	case msg.Read != nil && msg.Read.MID != "":
		mid = msg.Read.MID
		advance = storer.MarkDMOpened
	case msg.Postback != nil && msg.Postback.MID != "":
		mid = msg.Postback.MID
		advance = storer.MarkDMClicked
	default:
		return
	}

	dm, err := storer.GetDMByPlatformMessageID(ctx, p, mid)
	if err != nil {
		if !errors.Is(err, dmstore.ErrNotFound) {
			log.Warn("dm lookup failed", zap.String("mid", mid), zap.Error(err))
		}
		return
	}

	if err := advance(ctx, dm.ID); err != nil {
		log.Warn("dm status advance failed",
			zap.Int64("dm_id", dm.ID), zap.Error(err))
	}
}
