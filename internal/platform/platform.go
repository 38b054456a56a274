// Package platform holds the outbound gateways to the social platforms.
// Gateways receive decrypted tokens from the caller; nothing in this
// package touches the database.
package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"social-automator-api/internal/apperr"
	"social-automator-api/internal/domain"
)

// Comment is one platform comment as fetched from the remote API, before
// it is persisted.
type Comment struct {
	PlatformCommentID string
	PostID            string
	PostURL           *string
	Text              string
	AuthorUsername    string
	AuthorUserID      *string
	CommentedAt       time.Time
}

// Gateway is the per-platform outbound API surface. postRef "" means the
// account's recent comments. PostReply and SendDirectMessage return the
// platform-assigned id of the created reply or message.
type Gateway interface {
	Platform() domain.Platform
	FetchComments(ctx context.Context, token, accountID, postRef string) ([]Comment, error)
	PostReply(ctx context.Context, token, commentRef, text string) (string, error)
	SendDirectMessage(ctx context.Context, token, recipientRef, text string) (string, error)
}

// Registry maps platforms to their gateways.
type Registry map[domain.Platform]Gateway

// NewRegistry builds the production gateway set.
func NewRegistry(client *http.Client) Registry {
	return Registry{
		domain.PlatformInstagram: NewMetaGateway(domain.PlatformInstagram, client),
		domain.PlatformFacebook:  NewMetaGateway(domain.PlatformFacebook, client),
		domain.PlatformThreads:   NewMetaGateway(domain.PlatformThreads, client),
		domain.PlatformYouTube:   NewYouTubeGateway(),
	}
}

// Gateway returns the gateway for the platform.
func (r Registry) Gateway(p domain.Platform) (Gateway, error) {
	gw, ok := r[p]
	if !ok {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("no gateway for platform %q", p))
	}
	return gw, nil
}

// Per-call quota costs. YouTube unit costs follow the documented API
// pricing; the Meta platforms count requests.
func FetchCost(p domain.Platform) int {
	return 1
}

func ReplyCost(p domain.Platform) int {
	if p == domain.PlatformYouTube {
		return 50
	}
	return 1
}

func DMCost(p domain.Platform) int {
	return 1
}

// kindFromStatus maps a remote HTTP status onto the error taxonomy.
func kindFromStatus(status int) apperr.Kind {
	switch {
	case status == http.StatusUnauthorized:
		return apperr.KindCredentialExpired
	case status == http.StatusTooManyRequests:
		return apperr.KindRateLimited
	case status >= 500:
		return apperr.KindTransientNetwork
	default:
		return apperr.KindPermanentRejected
	}
}
