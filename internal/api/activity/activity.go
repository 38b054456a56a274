// Package activity has the activity feed, dashboard stats and quota
// handlers.
package activity

import (
	"net/http"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/store"
	activitystore "social-automator-api/internal/store/activity"

	"go.uber.org/zap"
)

func typeQuery(r *http.Request) (domain.ActivityType, bool) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return "", true
	}
	t := domain.ActivityType(raw)
	switch t {
	case domain.ActivityKeywordTriggered, domain.ActivityCommentReplied,
		domain.ActivityDMSent, domain.ActivityError:
		return t, true
	}
	return "", false
}

// HandleListActivity returns the activity feed, newest first.
func HandleListActivity(storer store.Storer, log *zap.Logger) http.HandlerFunc {
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
		activityType, ok := typeQuery(r)
		if !ok {
			common.WriteJSONError(w, http.StatusBadRequest, "Unknown activity type", log)
			return
		}

		entries, err := storer.ListActivity(r.Context(), activitystore.ListActivityParams{
			UserID:       userID,
			ActivityType: activityType,
			Platform:     platform,
			Limit:        common.LimitQuery(r),
		})
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch activity", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, entries, log)
	}
}

// HandleGetDashboardStats returns the aggregate dashboard counters.
func HandleGetDashboardStats(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		stats, err := storer.GetDashboardStats(r.Context(), userID)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch dashboard stats", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, stats, log)
	}
}

// HandleGetQuotas returns the user's per-platform API budgets.
func HandleGetQuotas(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		quotas, err := storer.GetQuotasForUser(r.Context(), userID)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch quotas", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, quotas, log)
	}
}
