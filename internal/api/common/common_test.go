package common

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetUserIDFromContext(t *testing.T) {
	t.Run("Present", func(t *testing.T) {
		userID := uuid.New()
		ctx := context.WithValue(context.Background(), UserContextKey, userID)

		got, err := GetUserIDFromContext(ctx)
		assert.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := GetUserIDFromContext(context.Background())
		assert.Error(t, err)
	})
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSON(rec, 201, map[string]string{"status": "created"}, zap.NewNop())

	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "created", body["status"])
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSONError(rec, 404, "trigger not found", zap.NewNop())

	assert.Equal(t, 404, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "trigger not found", body["error"])
}

func TestLimitQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/activity?limit=25", nil)
	assert.Equal(t, 25, LimitQuery(req))

	req = httptest.NewRequest("GET", "/activity?limit=-3", nil)
	assert.Equal(t, 0, LimitQuery(req))

	req = httptest.NewRequest("GET", "/activity", nil)
	assert.Equal(t, 0, LimitQuery(req))
}

func TestPlatformQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/comments?platform=instagram", nil)
	p, err := PlatformQuery(req)
	assert.NoError(t, err)
	assert.Equal(t, "instagram", string(p))

	req = httptest.NewRequest("GET", "/comments?platform=myspace", nil)
	_, err = PlatformQuery(req)
	assert.Error(t, err)
}
