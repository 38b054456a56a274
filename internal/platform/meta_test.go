package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"social-automator-api/internal/apperr"
	"social-automator-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaGateway_FetchComments_ForPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/post-1/comments", r.URL.Path)
		assert.Equal(t, "token-123", r.URL.Query().Get("access_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"c-1","text":"what is the pricing?","username":"interested_user","timestamp":"2024-01-15T10:30:00+0000"},
			{"id":"c-2","message":"nice post","from":{"id":"u-2","name":"Other User"},"created_time":"2024-01-15T11:00:00+0000"}
		]}`))
	}))
	defer srv.Close()

	gw := NewMetaGateway(domain.PlatformInstagram, srv.Client()).WithBaseURL(srv.URL)

	comments, err := gw.FetchComments(context.Background(), "token-123", "acct-1", "post-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)

	assert.Equal(t, "c-1", comments[0].PlatformCommentID)
	assert.Equal(t, "post-1", comments[0].PostID)
	assert.Equal(t, "what is the pricing?", comments[0].Text)
	assert.Equal(t, "interested_user", comments[0].AuthorUsername)

	// Facebook-shaped fields fall back to message/from/created_time.
	assert.Equal(t, "nice post", comments[1].Text)
	assert.Equal(t, "Other User", comments[1].AuthorUsername)
	require.NotNil(t, comments[1].AuthorUserID)
	assert.Equal(t, "u-2", *comments[1].AuthorUserID)
}

func TestMetaGateway_PostReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/c-1/replies", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Thanks! Check your DMs.", r.PostForm.Get("message"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"reply-9"}`))
	}))
	defer srv.Close()

	gw := NewMetaGateway(domain.PlatformInstagram, srv.Client()).WithBaseURL(srv.URL)

	id, err := gw.PostReply(context.Background(), "token-123", "c-1", "Thanks! Check your DMs.")
	assert.NoError(t, err)
	assert.Equal(t, "reply-9", id)
}

func TestMetaGateway_SendDirectMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recipient_id":"u-1","message_id":"m-42"}`))
	}))
	defer srv.Close()

	gw := NewMetaGateway(domain.PlatformInstagram, srv.Client()).WithBaseURL(srv.URL)

	id, err := gw.SendDirectMessage(context.Background(), "token-123", "u-1", "Here is the link")
	assert.NoError(t, err)
	assert.Equal(t, "m-42", id)
}

func TestMetaGateway_ThreadsHasNoDMs(t *testing.T) {
	gw := NewMetaGateway(domain.PlatformThreads, nil)

	_, err := gw.SendDirectMessage(context.Background(), "token", "u-1", "hi")
	assert.True(t, apperr.IsKind(err, apperr.KindPermanentRejected))
}

func TestMetaGateway_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   apperr.Kind
	}{
		{"Unauthorized", http.StatusUnauthorized, `{}`, apperr.KindCredentialExpired},
		{"Too Many Requests", http.StatusTooManyRequests, `{}`, apperr.KindRateLimited},
		{"Server Error", http.StatusInternalServerError, `{}`, apperr.KindTransientNetwork},
		{"Bad Request", http.StatusBadRequest, `{}`, apperr.KindPermanentRejected},
		{"Graph Throttle Code On 400", http.StatusBadRequest,
			`{"error":{"message":"Application request limit reached","code":4}}`, apperr.KindRateLimited},
		{"Expired Token Code", http.StatusBadRequest,
			`{"error":{"message":"Error validating access token","code":190}}`, apperr.KindCredentialExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			gw := NewMetaGateway(domain.PlatformFacebook, srv.Client()).WithBaseURL(srv.URL)

			_, err := gw.PostReply(context.Background(), "token", "c-1", "text")
			assert.True(t, apperr.IsKind(err, tt.want), "got kind %q", apperr.KindOf(err))
		})
	}
}
