// Package account has the current-user handlers.
package account

import (
	"errors"
	"net/http"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/store"
	userstore "social-automator-api/internal/store/user"

	"go.uber.org/zap"
)

// HandleGetMe returns the authenticated user's profile.
func HandleGetMe(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		user, err := storer.GetUserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, userstore.ErrNotFound) {
				common.WriteJSONError(w, http.StatusNotFound, "User not found", log)
				return
			}
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch user", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, user, log)
	}
}

// HandleDeleteMe removes the account and everything hanging off it.
func HandleDeleteMe(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		if err := storer.DeleteUser(r.Context(), userID); err != nil {
			if errors.Is(err, userstore.ErrNotFound) {
				common.WriteJSONError(w, http.StatusNotFound, "User not found", log)
				return
			}
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not delete user", log)
			return
		}

		log.Info("account deleted", zap.String("user_id", userID.String()))

		common.WriteJSON(w, http.StatusNoContent, nil, log)
	}
}
