// Package trigger has the keyword trigger handlers.
package trigger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/store"
	triggerstore "social-automator-api/internal/store/trigger"

	"go.uber.org/zap"
)

type createTriggerRequest struct {
	Keyword           string            `json:"keyword"`
	Platforms         []domain.Platform `json:"platforms"`
	SendDM            bool              `json:"send_dm"`
	DMTemplate        *string           `json:"dm_template"`
	DMVariables       map[string]string `json:"dm_variables"`
	SendCommentReply  bool              `json:"send_comment_reply"`
	CommentVariations []string          `json:"comment_variations"`
	UseAI             bool              `json:"use_ai"`
}

type updateTriggerRequest struct {
	Keyword           *string           `json:"keyword"`
	Platforms         []domain.Platform `json:"platforms"`
	SendDM            *bool             `json:"send_dm"`
	DMTemplate        *string           `json:"dm_template"`
	DMVariables       map[string]string `json:"dm_variables"`
	SendCommentReply  *bool             `json:"send_comment_reply"`
	CommentVariations []string          `json:"comment_variations"`
	UseAI             *bool             `json:"use_ai"`
}

func validPlatforms(platforms []domain.Platform) bool {
	for _, p := range platforms {
		if !p.Valid() {
			return false
		}
	}
	return true
}

// HandleGetTriggers lists the user's keyword triggers.
func HandleGetTriggers(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		triggers, err := storer.GetTriggersForUser(r.Context(), userID)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch triggers", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, triggers, log)
	}
}

// HandleCreateTrigger creates a keyword trigger.
func HandleCreateTrigger(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		var req createTriggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Invalid request body", log)
			return
		}
		if strings.TrimSpace(req.Keyword) == "" {
			common.WriteJSONError(w, http.StatusBadRequest, "keyword is required", log)
			return
		}
		if len(req.Platforms) == 0 {
			common.WriteJSONError(w, http.StatusBadRequest, "at least one platform is required", log)
			return
		}
		if !validPlatforms(req.Platforms) {
			common.WriteJSONError(w, http.StatusBadRequest, "Unknown platform", log)
			return
		}
		if req.SendDM && (req.DMTemplate == nil || strings.TrimSpace(*req.DMTemplate) == "") {
			common.WriteJSONError(w, http.StatusBadRequest, "dm_template is required when send_dm is set", log)
			return
		}

		trigger, err := storer.CreateTrigger(r.Context(), triggerstore.CreateTriggerParams{
			UserID:            userID,
			Keyword:           req.Keyword,
			Platforms:         req.Platforms,
			SendDM:            req.SendDM,
			DMTemplate:        req.DMTemplate,
			DMVariables:       req.DMVariables,
			SendCommentReply:  req.SendCommentReply,
			CommentVariations: req.CommentVariations,
			UseAI:             req.UseAI,
		})
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not create trigger", log)
			return
		}

		log.Info("keyword trigger created",
			zap.String("user_id", userID.String()),
			zap.String("keyword", trigger.Keyword))

		common.WriteJSON(w, http.StatusCreated, trigger, log)
	}
}

// HandleUpdateTrigger patches the fields present in the body.
func HandleUpdateTrigger(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		triggerID, err := common.ParseIDParam(r, "triggerId")
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		var req updateTriggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Invalid request body", log)
			return
		}
		if req.Keyword != nil && strings.TrimSpace(*req.Keyword) == "" {
			common.WriteJSONError(w, http.StatusBadRequest, "keyword cannot be blank", log)
			return
		}
		if !validPlatforms(req.Platforms) {
			common.WriteJSONError(w, http.StatusBadRequest, "Unknown platform", log)
			return
		}

		trigger, err := storer.UpdateTrigger(r.Context(), triggerstore.UpdateTriggerParams{
			TriggerID:         triggerID,
			UserID:            userID,
			Keyword:           req.Keyword,
			Platforms:         req.Platforms,
			SendDM:            req.SendDM,
			DMTemplate:        req.DMTemplate,
			DMVariables:       req.DMVariables,
			SendCommentReply:  req.SendCommentReply,
			CommentVariations: req.CommentVariations,
			UseAI:             req.UseAI,
		})
		if err != nil {
			if errors.Is(err, triggerstore.ErrNotFound) {
				common.WriteJSONError(w, http.StatusNotFound, "Trigger not found", log)
				return
			}
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not update trigger", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, trigger, log)
	}
}

// HandleToggleTrigger flips a trigger's active flag.
func HandleToggleTrigger(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		triggerID, err := common.ParseIDParam(r, "triggerId")
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		trigger, err := storer.ToggleTrigger(r.Context(), triggerID, userID)
		if err != nil {
			if errors.Is(err, triggerstore.ErrNotFound) {
				common.WriteJSONError(w, http.StatusNotFound, "Trigger not found", log)
				return
			}
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not toggle trigger", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, trigger, log)
	}
}

// HandleDeleteTrigger removes a trigger.
func HandleDeleteTrigger(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		triggerID, err := common.ParseIDParam(r, "triggerId")
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		if err := storer.DeleteTrigger(r.Context(), triggerID, userID); err != nil {
			if errors.Is(err, triggerstore.ErrNotFound) {
				common.WriteJSONError(w, http.StatusNotFound, "Trigger not found", log)
				return
			}
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not delete trigger", log)
			return
		}

		common.WriteJSON(w, http.StatusNoContent, nil, log)
	}
}
