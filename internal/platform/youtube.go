package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-automator-api/internal/apperr"
	"social-automator-api/internal/domain"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeGateway talks to the YouTube Data API. Replies go through the
// comments endpoint; YouTube has no DM API, so SendDirectMessage always
// rejects.
type YouTubeGateway struct {
	opts []option.ClientOption
}

// NewYouTubeGateway creates the gateway. Extra client options are only
// passed in tests to point at a fake endpoint.
func NewYouTubeGateway(opts ...option.ClientOption) *YouTubeGateway {
	return &YouTubeGateway{opts: opts}
}

func (g *YouTubeGateway) Platform() domain.Platform {
	return domain.PlatformYouTube
}

func (g *YouTubeGateway) service(ctx context.Context, token string) (*youtube.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	opts := append([]option.ClientOption{option.WithTokenSource(src)}, g.opts...)

	srv, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create youtube service: %w", err)
	}
	return srv, nil
}

// FetchComments lists comment threads for a video, or for the whole
// channel when postRef is empty.
func (g *YouTubeGateway) FetchComments(ctx context.Context, token, accountID, postRef string) ([]Comment, error) {
	srv, err := g.service(ctx, token)
	if err != nil {
		return nil, err
	}

	call := srv.CommentThreads.List([]string{"snippet"}).
		Context(ctx).
		TextFormat("plainText").
		MaxResults(50)
	if postRef != "" {
		call = call.VideoId(postRef)
	} else {
		call = call.AllThreadsRelatedToChannelId(accountID)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, mapYouTubeError(err)
	}

	comments := make([]Comment, 0, len(resp.Items))
	for _, thread := range resp.Items {
		if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil {
			continue
		}
		top := thread.Snippet.TopLevelComment
		if top.Snippet == nil {
			continue
		}

		commentedAt, err := time.Parse(time.RFC3339, top.Snippet.PublishedAt)
		if err != nil {
			commentedAt = time.Now()
		}

		var authorID *string
		if top.Snippet.AuthorChannelId != nil && top.Snippet.AuthorChannelId.Value != "" {
			id := top.Snippet.AuthorChannelId.Value
			authorID = &id
		}

		comments = append(comments, Comment{
			PlatformCommentID: top.Id,
			PostID:            thread.Snippet.VideoId,
			Text:              top.Snippet.TextDisplay,
			AuthorUsername:    top.Snippet.AuthorDisplayName,
			AuthorUserID:      authorID,
			CommentedAt:       commentedAt,
		})
	}
	return comments, nil
}

// PostReply creates a threaded reply under the comment.
func (g *YouTubeGateway) PostReply(ctx context.Context, token, commentRef, text string) (string, error) {
	srv, err := g.service(ctx, token)
	if err != nil {
		return "", err
	}

	reply := &youtube.Comment{
		Snippet: &youtube.CommentSnippet{
			ParentId:     commentRef,
			TextOriginal: text,
		},
	}

	created, err := srv.Comments.Insert([]string{"snippet"}, reply).Context(ctx).Do()
	if err != nil {
		return "", mapYouTubeError(err)
	}
	return created.Id, nil
}

// SendDirectMessage always rejects: the YouTube Data API has no messaging
// surface.
func (g *YouTubeGateway) SendDirectMessage(ctx context.Context, token, recipientRef, text string) (string, error) {
	return "", apperr.New(apperr.KindPermanentRejected, "youtube does not support direct messages")
}

// mapYouTubeError translates googleapi errors onto the taxonomy. A 403
// with a quota reason means the daily unit budget ran out upstream.
func mapYouTubeError(err error) error {
	var ge *googleapi.Error
	if !errors.As(err, &ge) {
		return apperr.Wrap(apperr.KindTransientNetwork, "youtube api request failed", err)
	}

	kind := kindFromStatus(ge.Code)
	for _, item := range ge.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded":
			kind = apperr.KindQuotaExceeded
		case "rateLimitExceeded", "userRateLimitExceeded":
			kind = apperr.KindRateLimited
		}
	}
	return apperr.Wrap(kind, "youtube api error", err)
}
