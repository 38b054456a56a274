// Package auth implements the Google OAuth login flow and JWT issuing.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"social-automator-api/internal/api/common"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/store"
	connstore "social-automator-api/internal/store/connection"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const oauthStateCookieName = "oauthstate"

// GenerateJWT creates a signed session token for a user.
func GenerateJWT(userID uuid.UUID) (string, error) {
	jwtKey := []byte(os.Getenv("JWT_SECRET_KEY"))
	if len(jwtKey) == 0 {
		return "", fmt.Errorf("JWT_SECRET_KEY is not set")
	}

	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"iss":     "social-automator-api",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour * 24 * 7).Unix(), // valid for 7 days
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtKey)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}

	return tokenString, nil
}

// HandleGoogleLogin starts the OAuth flow to Google.
func HandleGoogleLogin(oauthConfig *oauth2.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 32)
		rand.Read(b)
		state := base64.URLEncoding.EncodeToString(b)

		cookie := &http.Cookie{
			Name:     oauthStateCookieName,
			Value:    state,
			Path:     "/",
			HttpOnly: true,
			MaxAge:   60 * 10,
		}
		http.SetCookie(w, cookie)

		authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

// HandleGoogleCallback handles the callback from Google after login. When
// the grant includes a YouTube scope the tokens are also stored as a
// youtube platform connection, so one consent covers login and polling.
func HandleGoogleCallback(storer store.Storer, oauthConfig *oauth2.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		stateCookie, err := r.Cookie(oauthStateCookieName)
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Missing state cookie", log)
			return
		}
		if r.URL.Query().Get("state") != stateCookie.Value {
			common.WriteJSONError(w, http.StatusBadRequest, "Invalid state token", log)
			return
		}

		code := r.URL.Query().Get("code")
		token, err := oauthConfig.Exchange(ctx, code)
		if err != nil {
			common.WriteJSONError(
				w,
				http.StatusInternalServerError,
				fmt.Sprintf("Could not exchange code: %s", err.Error()),
				log,
			)
			return
		}

		userInfo, err := getUserInfo(ctx, token)
		if err != nil {
			common.WriteJSONError(
				w,
				http.StatusInternalServerError,
				fmt.Sprintf("Could not fetch user info: %s", err.Error()),
				log,
			)
			return
		}

		user, err := storer.CreateUser(ctx, userInfo.Email, userInfo.Name)
		if err != nil {
			common.WriteJSONError(
				w,
				http.StatusInternalServerError,
				fmt.Sprintf("Could not create user: %s", err.Error()),
				log,
			)
			return
		}

		if hasYouTubeScope(oauthConfig.Scopes) {
			accountName := userInfo.Name
			expiry := token.Expiry
			_, err := storer.CreateConnection(ctx, connstore.CreateConnectionParams{
				UserID:         user.ID,
				Platform:       domain.PlatformYouTube,
				AccountName:    &accountName,
				AccessToken:    token.AccessToken,
				RefreshToken:   token.RefreshToken,
				TokenExpiresAt: &expiry,
			})
			if err != nil {
				log.Error("could not store youtube connection",
					zap.String("user_id", user.ID.String()),
					zap.Error(err))
			} else {
				log.Info("youtube connection stored",
					zap.String("user_id", user.ID.String()))
			}
		}

		jwtString, err := GenerateJWT(user.ID)
		if err != nil {
			common.WriteJSONError(
				w,
				http.StatusInternalServerError,
				fmt.Sprintf("Could not generate auth token: %s", err.Error()),
				log,
			)
			return
		}

		redirectURL := fmt.Sprintf("%s/dashboard?token=%s", os.Getenv("CLIENT_BASE_URL"), jwtString)
		http.Redirect(w, r, redirectURL, http.StatusSeeOther)
	}
}

func hasYouTubeScope(scopes []string) bool {
	for _, s := range scopes {
		if strings.Contains(s, "youtube") {
			return true
		}
	}
	return false
}

// getUserInfo fetches profile info with a valid token.
func getUserInfo(ctx context.Context, token *oauth2.Token) (*oauth2v2.Userinfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	oauth2Service, err := oauth2v2.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}

	userInfo, err := oauth2Service.Userinfo.Get().Do()
	if err != nil {
		return nil, err
	}

	return userInfo, nil
}
