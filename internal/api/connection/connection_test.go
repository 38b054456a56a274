package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/store"
	connstore "social-automator-api/internal/store/connection"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func authedRequest(method, target string, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), common.UserContextKey, userID)
	return req.WithContext(ctx)
}

func TestHandleGetConnections(t *testing.T) {
	testLogger := zap.NewNop()
	mockStore := &store.MockStore{}

	userID := uuid.New()
	conn := domain.PlatformConnection{Platform: domain.PlatformInstagram, IsActive: true}
	conn.ID = 1
	conn.UserID = userID
	conn.CreatedAt = time.Now()

	mockStore.On("GetConnectionsForUser", mock.Anything, userID).
		Return([]domain.PlatformConnection{conn}, nil)

	rr := httptest.NewRecorder()
	HandleGetConnections(mockStore, testLogger).
		ServeHTTP(rr, authedRequest("GET", "/api/v1/platforms", "", userID))

	assert.Equal(t, http.StatusOK, rr.Code)

	var response []domain.PlatformConnection
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Len(t, response, 1)
	assert.Equal(t, domain.PlatformInstagram, response[0].Platform)
	mockStore.AssertExpectations(t)
}

func TestHandleCreateConnection(t *testing.T) {
	testLogger := zap.NewNop()

	t.Run("Valid", func(t *testing.T) {
		mockStore := &store.MockStore{}
		userID := uuid.New()

		created := domain.PlatformConnection{Platform: domain.PlatformYouTube, IsActive: true}
		created.ID = 2
		created.UserID = userID

		mockStore.On("CreateConnection", mock.Anything, mock.MatchedBy(func(arg connstore.CreateConnectionParams) bool {
			return arg.Platform == domain.PlatformYouTube && arg.AccessToken == "ya29.token"
		})).Return(created, nil)

		body := `{"platform":"youtube","access_token":"ya29.token","account_id":"chan-1"}`
		rr := httptest.NewRecorder()
		HandleCreateConnection(mockStore, testLogger).
			ServeHTTP(rr, authedRequest("POST", "/api/v1/platforms", body, userID))

		assert.Equal(t, http.StatusCreated, rr.Code)
		mockStore.AssertExpectations(t)
	})

	t.Run("Unknown Platform", func(t *testing.T) {
		mockStore := &store.MockStore{}

		body := `{"platform":"myspace","access_token":"tok"}`
		rr := httptest.NewRecorder()
		HandleCreateConnection(mockStore, testLogger).
			ServeHTTP(rr, authedRequest("POST", "/api/v1/platforms", body, uuid.New()))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockStore.AssertNotCalled(t, "CreateConnection", mock.Anything, mock.Anything)
	})

	t.Run("Missing Token", func(t *testing.T) {
		mockStore := &store.MockStore{}

		body := `{"platform":"instagram"}`
		rr := httptest.NewRecorder()
		HandleCreateConnection(mockStore, testLogger).
			ServeHTTP(rr, authedRequest("POST", "/api/v1/platforms", body, uuid.New()))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleDeleteConnection(t *testing.T) {
	testLogger := zap.NewNop()

	t.Run("Found", func(t *testing.T) {
		mockStore := &store.MockStore{}
		userID := uuid.New()

		mockStore.On("DeleteConnection", mock.Anything, int64(3), userID).Return(nil)

		req := authedRequest("DELETE", "/api/v1/platforms/3", "", userID)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("connectionId", "3")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		rr := httptest.NewRecorder()
		HandleDeleteConnection(mockStore, testLogger).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		mockStore.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockStore := &store.MockStore{}
		userID := uuid.New()

		// Wrapped sentinel still maps to 404.
		mockStore.On("DeleteConnection", mock.Anything, int64(9), userID).
			Return(fmt.Errorf("delete connection: %w", connstore.ErrNotFound))

		req := authedRequest("DELETE", "/api/v1/platforms/9", "", userID)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("connectionId", "9")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		rr := httptest.NewRecorder()
		HandleDeleteConnection(mockStore, testLogger).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
