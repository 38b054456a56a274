// Package dm has the direct-message list handler.
package dm

import (
	"net/http"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/store"
	dmstore "social-automator-api/internal/store/dm"

	"go.uber.org/zap"
)

func statusQuery(r *http.Request) (domain.DMStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", true
	}
	s := domain.DMStatus(raw)
	switch s {
	case domain.DMPending, domain.DMSent, domain.DMFailed, domain.DMOpened, domain.DMClicked:
		return s, true
	}
	return "", false
}

// HandleListDMs returns the user's DM history, newest first.
func HandleListDMs(storer store.Storer, log *zap.Logger) http.HandlerFunc {
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
		status, ok := statusQuery(r)
		if !ok {
			common.WriteJSONError(w, http.StatusBadRequest, "Unknown status", log)
			return
		}

		dms, err := storer.ListDMs(r.Context(), dmstore.ListDMsParams{
			UserID:   userID,
			Platform: platform,
			Status:   status,
			Limit:    common.LimitQuery(r),
		})
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch direct messages", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, dms, log)
	}
}
