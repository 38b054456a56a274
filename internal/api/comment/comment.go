// Package comment has the comment list and manual-response handlers.
package comment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/store"
	commentstore "social-automator-api/internal/store/comment"

	"go.uber.org/zap"
)

type respondCommentRequest struct {
	ResponseText string `json:"response_text"`
}

// HandleListComments returns the filtered comment list for the dashboard.
func HandleListComments(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		platform, err := common.PlatformQuery(r)
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		comments, err := storer.ListComments(r.Context(), commentstore.ListCommentsParams{
			UserID:      userID,
			Platform:    platform,
			PostID:      r.URL.Query().Get("postId"),
			Unresponded: r.URL.Query().Get("unresponded") == "true",
			Limit:       common.LimitQuery(r),
		})
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch comments", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, comments, log)
	}
}

// HandleRespondComment records a manual response on a comment. The reply
// itself happens in the platform's own app; this endpoint only marks the
// comment handled so automation will leave it alone.
func HandleRespondComment(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, err := common.ParseIDParam(r, "commentId")
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		var req respondCommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Invalid request body", log)
			return
		}
		if strings.TrimSpace(req.ResponseText) == "" {
			common.WriteJSONError(w, http.StatusBadRequest, "response_text is required", log)
			return
		}

		comment, err := storer.GetCommentByID(r.Context(), commentID)
		if err != nil {
			if errors.Is(err, commentstore.ErrNotFound) {
				common.WriteJSONError(w, http.StatusNotFound, "Comment not found", log)
				return
			}
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch comment", log)
			return
		}
		if comment.UserID != userID {
			common.WriteJSONError(w, http.StatusNotFound, "Comment not found", log)
			return
		}

		marked, err := storer.MarkResponded(r.Context(), commentstore.MarkRespondedParams{
			CommentID:      commentID,
			ResponseText:   req.ResponseText,
			ResponseMethod: domain.ResponseManual,
		})
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not record response", log)
			return
		}
		if !marked {
			common.WriteJSONError(w, http.StatusConflict, "Comment already responded to", log)
			return
		}

		updated, err := storer.GetCommentByID(r.Context(), commentID)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch comment", log)
			return
		}

		log.Info("comment manually responded",
			zap.String("user_id", userID.String()),
			zap.Int64("comment_id", commentID))

		common.WriteJSON(w, http.StatusOK, updated, log)
	}
}
