// Package api assembles the HTTP server: routing, CORS, and the JWT auth
// middleware that guards the dashboard routes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"social-automator-api/internal/api/account"
	"social-automator-api/internal/api/activity"
	"social-automator-api/internal/api/auth"
	"social-automator-api/internal/api/comment"
	"social-automator-api/internal/api/common"
	"social-automator-api/internal/api/connection"
	"social-automator-api/internal/api/dm"
	"social-automator-api/internal/api/health"
	"social-automator-api/internal/api/trigger"
	"social-automator-api/internal/api/webhook"
	"social-automator-api/internal/automation"
	"social-automator-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Server struct {
	Router            *chi.Mux
	store             store.Storer
	googleOAuthConfig *oauth2.Config
	dispatcher        *automation.Dispatcher
	log               *zap.Logger
}

func NewServer(s store.Storer, oauthConfig *oauth2.Config, dispatcher *automation.Dispatcher, log *zap.Logger) *Server {
	server := &Server{
		Router:            chi.NewRouter(),
		store:             s,
		googleOAuthConfig: oauthConfig,
		dispatcher:        dispatcher,
		log:               log,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	allowedOrigins := strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",")
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.HandleHealth(s.log))

		// Auth routes
		r.Get("/auth/google/login", auth.HandleGoogleLogin(s.googleOAuthConfig, s.log))
		r.Get("/auth/google/callback", auth.HandleGoogleCallback(s.store, s.googleOAuthConfig, s.log))

		// Meta webhook; Meta authenticates with the verify token, not a JWT.
		r.Get("/webhooks/meta", webhook.HandleVerify(s.log))
		r.Post("/webhooks/meta", webhook.HandleIngest(s.store, s.dispatcher, s.log))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// User routes
			r.Get("/me", account.HandleGetMe(s.store, s.log))
			r.Delete("/me", account.HandleDeleteMe(s.store, s.log))

			// Platform connection routes
			r.Get("/platforms", connection.HandleGetConnections(s.store, s.log))
			r.Post("/platforms", connection.HandleCreateConnection(s.store, s.log))
			r.Patch("/platforms/{connectionId}", connection.HandleUpdateConnection(s.store, s.log))
			r.Delete("/platforms/{connectionId}", connection.HandleDeleteConnection(s.store, s.log))

			// Keyword trigger routes
			r.Get("/keywords", trigger.HandleGetTriggers(s.store, s.log))
			r.Post("/keywords", trigger.HandleCreateTrigger(s.store, s.log))
			r.Patch("/keywords/{triggerId}", trigger.HandleUpdateTrigger(s.store, s.log))
			r.Post("/keywords/{triggerId}/toggle", trigger.HandleToggleTrigger(s.store, s.log))
			r.Delete("/keywords/{triggerId}", trigger.HandleDeleteTrigger(s.store, s.log))

			// Comment routes
			r.Get("/comments", comment.HandleListComments(s.store, s.log))
			r.Post("/comments/{commentId}/respond", comment.HandleRespondComment(s.store, s.log))

			// DM and activity routes
			r.Get("/dms", dm.HandleListDMs(s.store, s.log))
			r.Get("/activity", activity.HandleListActivity(s.store, s.log))
			r.Get("/dashboard/stats", activity.HandleGetDashboardStats(s.store, s.log))
			r.Get("/quotas", activity.HandleGetQuotas(s.store, s.log))
		})
	})
}

// authMiddleware validates the JWT and puts the user ID in the context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			common.WriteJSONError(w, http.StatusUnauthorized, "Missing authentication header", s.log)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		jwtKey := []byte(os.Getenv("JWT_SECRET_KEY"))

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("invalid signing method")
			}
			return jwtKey, nil
		})

		if err != nil || !token.Valid {
			common.WriteJSONError(w, http.StatusUnauthorized, "Invalid token", s.log)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			common.WriteJSONError(w, http.StatusUnauthorized, "Invalid claims", s.log)
			return
		}

		userIDStr, ok := claims["user_id"].(string)
		if !ok {
			common.WriteJSONError(w, http.StatusUnauthorized, "No user ID in token", s.log)
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, "Invalid user ID", s.log)
			return
		}

		ctx := context.WithValue(r.Context(), common.UserContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
