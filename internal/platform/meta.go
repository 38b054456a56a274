package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-automator-api/internal/apperr"
	"social-automator-api/internal/domain"
)

const (
	graphBaseURL   = "https://graph.facebook.com/v19.0"
	threadsBaseURL = "https://graph.threads.net/v1.0"

	// Graph timestamps come back as "2024-01-15T10:30:00+0000".
	graphTimeLayout = "2006-01-02T15:04:05-0700"
)

// MetaGateway talks to the Graph API for instagram, facebook and threads.
// The three platforms share the wire format; the differences are the base
// URL, the reply edge and DM support.
type MetaGateway struct {
	platform domain.Platform
	client   *http.Client
	baseURL  string
}

// NewMetaGateway creates a gateway for one of the Meta platforms.
func NewMetaGateway(p domain.Platform, client *http.Client) *MetaGateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	base := graphBaseURL
	if p == domain.PlatformThreads {
		base = threadsBaseURL
	}
	return &MetaGateway{platform: p, client: client, baseURL: base}
}

// WithBaseURL points the gateway at a different endpoint. Used in tests.
func (g *MetaGateway) WithBaseURL(base string) *MetaGateway {
	g.baseURL = strings.TrimRight(base, "/")
	return g
}

func (g *MetaGateway) Platform() domain.Platform {
	return g.platform
}

type graphComment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Message   string `json:"message"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	Created   string `json:"created_time"`
	From      *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"from"`
}

type graphCommentList struct {
	Data []graphComment `json:"data"`
}

type graphMediaList struct {
	Data []struct {
		ID        string           `json:"id"`
		Permalink string           `json:"permalink"`
		Comments  graphCommentList `json:"comments"`
	} `json:"data"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// FetchComments lists comments for one post, or for the account's recent
// media when postRef is empty.
func (g *MetaGateway) FetchComments(ctx context.Context, token, accountID, postRef string) ([]Comment, error) {
	if postRef != "" {
		body, err := g.get(ctx, fmt.Sprintf("/%s/comments", postRef), token, url.Values{
			"fields": {"id,text,message,username,from,timestamp,created_time"},
		})
		if err != nil {
			return nil, err
		}

		var list graphCommentList
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("could not decode comment list: %w", err)
		}

		comments := make([]Comment, 0, len(list.Data))
		for _, gc := range list.Data {
			comments = append(comments, gc.toComment(postRef, nil))
		}
		return comments, nil
	}

	body, err := g.get(ctx, fmt.Sprintf("/%s/media", accountID), token, url.Values{
		"fields": {"id,permalink,comments{id,text,message,username,from,timestamp,created_time}"},
		"limit":  {"10"},
	})
	if err != nil {
		return nil, err
	}

	var media graphMediaList
	if err := json.Unmarshal(body, &media); err != nil {
		return nil, fmt.Errorf("could not decode media list: %w", err)
	}

	var comments []Comment
	for _, m := range media.Data {
		var postURL *string
		if m.Permalink != "" {
			u := m.Permalink
			postURL = &u
		}
		for _, gc := range m.Comments.Data {
			comments = append(comments, gc.toComment(m.ID, postURL))
		}
	}
	return comments, nil
}

// PostReply creates a threaded reply under the comment.
func (g *MetaGateway) PostReply(ctx context.Context, token, commentRef, text string) (string, error) {
	// Facebook replies through the comments edge; instagram and threads
	// have a dedicated replies edge.
	edge := "replies"
	if g.platform == domain.PlatformFacebook {
		edge = "comments"
	}

	body, err := g.post(ctx, fmt.Sprintf("/%s/%s", commentRef, edge), token, url.Values{
		"message": {text},
	})
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("could not decode reply response: %w", err)
	}
	return created.ID, nil
}

// SendDirectMessage delivers a DM through the messaging edge. Threads has
// no messaging API.
func (g *MetaGateway) SendDirectMessage(ctx context.Context, token, recipientRef, text string) (string, error) {
	if g.platform == domain.PlatformThreads {
		return "", apperr.New(apperr.KindPermanentRejected, "threads does not support direct messages")
	}

	payload, err := json.Marshal(map[string]any{
		"recipient": map[string]string{"id": recipientRef},
		"message":   map[string]string{"text": text},
	})
	if err != nil {
		return "", fmt.Errorf("could not encode dm payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", g.baseURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := g.do(req)
	if err != nil {
		return "", err
	}

	var sent struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(body, &sent); err != nil {
		return "", fmt.Errorf("could not decode dm response: %w", err)
	}
	return sent.MessageID, nil
}

func (gc graphComment) toComment(postID string, postURL *string) Comment {
	text := gc.Text
	if text == "" {
		text = gc.Message
	}

	username := gc.Username
	var authorID *string
	if gc.From != nil {
		if username == "" {
			username = gc.From.Username
		}
		if username == "" {
			username = gc.From.Name
		}
		if gc.From.ID != "" {
			id := gc.From.ID
			authorID = &id
		}
	}

	raw := gc.Timestamp
	if raw == "" {
		raw = gc.Created
	}
	commentedAt, err := time.Parse(graphTimeLayout, raw)
	if err != nil {
		if commentedAt, err = time.Parse(time.RFC3339, raw); err != nil {
			commentedAt = time.Now()
		}
	}

	return Comment{
		PlatformCommentID: gc.ID,
		PostID:            postID,
		PostURL:           postURL,
		Text:              text,
		AuthorUsername:    username,
		AuthorUserID:      authorID,
		CommentedAt:       commentedAt,
	}
}

func (g *MetaGateway) get(ctx context.Context, path, token string, params url.Values) ([]byte, error) {
	params.Set("access_token", token)
	endpoint := fmt.Sprintf("%s%s?%s", g.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}
	return g.do(req)
}

func (g *MetaGateway) post(ctx context.Context, path, token string, params url.Values) ([]byte, error) {
	params.Set("access_token", token)
	endpoint := fmt.Sprintf("%s%s", g.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req)
}

func (g *MetaGateway) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientNetwork, "graph api request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientNetwork, "could not read graph api response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := kindFromStatus(resp.StatusCode)
		msg := fmt.Sprintf("graph api returned %d", resp.StatusCode)

		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			msg = ge.Error.Message
			// Graph reports throttling with its own codes on a 400.
			switch ge.Error.Code {
			case 4, 17, 32, 613:
				kind = apperr.KindRateLimited
			case 190:
				kind = apperr.KindCredentialExpired
			}
		}
		return nil, apperr.New(kind, msg)
	}

	return body, nil
}
