// Package connection has the platform connection handlers.
package connection

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/store"
	connstore "social-automator-api/internal/store/connection"

	"go.uber.org/zap"
)

type createConnectionRequest struct {
	Platform       domain.Platform `json:"platform"`
	AccountName    *string         `json:"account_name"`
	AccountID      *string         `json:"account_id"`
	AccessToken    string          `json:"access_token"`
	RefreshToken   string          `json:"refresh_token"`
	TokenExpiresAt *time.Time      `json:"token_expires_at"`
}

type updateConnectionRequest struct {
	AccountName *string `json:"account_name"`
	IsActive    *bool   `json:"is_active"`
}

// HandleGetConnections lists the user's platform connections.
func HandleGetConnections(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		connections, err := storer.GetConnectionsForUser(r.Context(), userID)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch connections", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, connections, log)
	}
}

// HandleCreateConnection connects a platform account.
func HandleCreateConnection(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		var req createConnectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Invalid request body", log)
			return
		}
		if !req.Platform.Valid() {
			common.WriteJSONError(w, http.StatusBadRequest, "Unknown platform", log)
			return
		}
		if req.AccessToken == "" {
			common.WriteJSONError(w, http.StatusBadRequest, "access_token is required", log)
			return
		}

		conn, err := storer.CreateConnection(r.Context(), connstore.CreateConnectionParams{
			UserID:         userID,
			Platform:       req.Platform,
			AccountName:    req.AccountName,
			AccountID:      req.AccountID,
			AccessToken:    req.AccessToken,
			RefreshToken:   req.RefreshToken,
			TokenExpiresAt: req.TokenExpiresAt,
		})
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not create connection", log)
			return
		}

		log.Info("platform connected",
			zap.String("user_id", userID.String()),
			zap.String("platform", string(conn.Platform)))

		common.WriteJSON(w, http.StatusCreated, conn, log)
	}
}

// HandleUpdateConnection patches the account name or active flag.
func HandleUpdateConnection(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connectionID, err := common.ParseIDParam(r, "connectionId")
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		var req updateConnectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Invalid request body", log)
			return
		}

		conn, err := storer.UpdateConnection(r.Context(), connstore.UpdateConnectionParams{
			ConnectionID: connectionID,
			UserID:       userID,
			AccountName:  req.AccountName,
			IsActive:     req.IsActive,
		})
		if err != nil {
			if errors.Is(err, connstore.ErrNotFound) {
				common.WriteJSONError(w, http.StatusNotFound, "Connection not found", log)
				return
			}
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not update connection", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, conn, log)
	}
}

// HandleDeleteConnection disconnects a platform account.
func HandleDeleteConnection(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connectionID, err := common.ParseIDParam(r, "connectionId")
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		if err := storer.DeleteConnection(r.Context(), connectionID, userID); err != nil {
			if errors.Is(err, connstore.ErrNotFound) {
				common.WriteJSONError(w, http.StatusNotFound, "Connection not found", log)
				return
			}
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not delete connection", log)
			return
		}

		common.WriteJSON(w, http.StatusNoContent, nil, log)
	}
}
