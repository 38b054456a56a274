package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/store"
	userstore "social-automator-api/internal/store/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func authedRequest(method, target string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), common.UserContextKey, userID)
	return req.WithContext(ctx)
}

func TestHandleGetMe(t *testing.T) {
	testLogger := zap.NewNop()

	t.Run("Found", func(t *testing.T) {
		mockStore := &store.MockStore{}
		userID := uuid.New()
		name := "Test User"

		mockStore.On("GetUserByID", mock.Anything, userID).
			Return(domain.User{ID: userID, Email: "test@example.com", Name: &name}, nil)

		rr := httptest.NewRecorder()
		HandleGetMe(mockStore, testLogger).
			ServeHTTP(rr, authedRequest("GET", "/api/v1/me", userID))

		assert.Equal(t, http.StatusOK, rr.Code)

		var response domain.User
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		assert.Equal(t, "test@example.com", response.Email)
		mockStore.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockStore := &store.MockStore{}
		userID := uuid.New()

		mockStore.On("GetUserByID", mock.Anything, userID).
			Return(domain.User{}, userstore.ErrNotFound)

		rr := httptest.NewRecorder()
		HandleGetMe(mockStore, testLogger).
			ServeHTTP(rr, authedRequest("GET", "/api/v1/me", userID))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("No User In Context", func(t *testing.T) {
		mockStore := &store.MockStore{}

		rr := httptest.NewRecorder()
		HandleGetMe(mockStore, testLogger).
			ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestHandleDeleteMe(t *testing.T) {
	mockStore := &store.MockStore{}
	userID := uuid.New()

	mockStore.On("DeleteUser", mock.Anything, userID).Return(nil)

	rr := httptest.NewRecorder()
	HandleDeleteMe(mockStore, zap.NewNop()).
		ServeHTTP(rr, authedRequest("DELETE", "/api/v1/me", userID))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	mockStore.AssertExpectations(t)
}
