// Package common has the JSON helpers and context plumbing shared by the
// API handler packages.
package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"social-automator-api/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// contextKey for user ID
type contextKey string

var UserContextKey contextKey = "user_id"

// GetUserIDFromContext returns the user ID the auth middleware stored.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(UserContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing or invalid user ID in context")
	}
	return userID, nil
}

// WriteJSON writes a standard JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(
			"failed to write JSON response",
			zap.Error(err),
			zap.Int("status", status),
			zap.String("component", "api"),
		)
	}
}

// WriteJSONError writes a standard JSON error response.
func WriteJSONError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	WriteJSON(w, status, map[string]string{"error": message}, logger)
}

// ParseIDParam reads an int64 URL parameter.
func ParseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// PlatformQuery reads an optional ?platform= filter. An empty value means
// no filter; anything else must be a known platform.
func PlatformQuery(r *http.Request) (domain.Platform, error) {
	raw := r.URL.Query().Get("platform")
	if raw == "" {
		return "", nil
	}
	p := domain.Platform(raw)
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", raw)
	}
	return p, nil
}

// LimitQuery reads an optional ?limit= filter; 0 means store default.
func LimitQuery(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
