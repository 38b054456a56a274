package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"social-automator-api/internal/ai"
	"social-automator-api/internal/api"
	"social-automator-api/internal/automation"
	"social-automator-api/internal/database"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/logger"
	"social-automator-api/internal/platform"
	"social-automator-api/internal/store"
	"social-automator-api/internal/worker"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

func main() {
	// 1. Load configuration (.env)
	_ = godotenv.Load()

	// 2. Initialize logger
	log, err := logger.NewLogger()
	if err != nil {
		panic("Could not initialize logger: " + err.Error()) // Can't log if logger fails
	}
	defer log.Sync()

	// 3. Connect to the database and run migrations
	pool, err := database.ConnectDB(log)
	if err != nil {
		log.Error("could not connect to the database", zap.Error(err))
		return
	}
	defer pool.Close()

	if err = database.RunMigrations(context.Background(), pool, log); err != nil {
		log.Error("database migrations failed", zap.Error(err))
		return
	}

	// 4. OAuth configs. Google covers login and YouTube; Meta covers the
	// Graph platforms' token refresh.
	clientID := os.Getenv("GOOGLE_OAUTH_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET")
	// e.g. http://localhost:8080/api/v1/auth/google/callback
	redirectURL := os.Getenv("OAUTH_REDIRECT_URL")

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		log.Error("Google OAuth configuration missing", zap.String("component", "main"))
		return
	}

	googleOAuthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			// YouTube Data API: read comment threads, post replies
			"https://www.googleapis.com/auth/youtube.force-ssl",

			// User info
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
	}

	oauthConfigs := map[domain.Platform]*oauth2.Config{
		domain.PlatformYouTube: googleOAuthConfig,
	}
	if metaClientID := os.Getenv("META_OAUTH_CLIENT_ID"); metaClientID != "" {
		metaConfig := &oauth2.Config{
			ClientID:     metaClientID,
			ClientSecret: os.Getenv("META_OAUTH_CLIENT_SECRET"),
			Endpoint:     facebook.Endpoint,
		}
		oauthConfigs[domain.PlatformInstagram] = metaConfig
		oauthConfigs[domain.PlatformFacebook] = metaConfig
		oauthConfigs[domain.PlatformThreads] = metaConfig
	}

	// 5. Store layer
	dbStore := store.NewStore(pool)

	// 6. Automation pipeline: gateways, AI reply generation, dispatcher.
	gateways := platform.NewRegistry(nil)
	throttle := platform.NewThrottle()

	var generator ai.Generator
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		gen, err := ai.NewGeminiGenerator(context.Background(), apiKey)
		if err != nil {
			log.Error("could not initialize text generation", zap.Error(err))
			return
		}
		generator = gen
	} else {
		log.Warn("GEMINI_API_KEY not set, AI replies fall back to the default text")
	}

	selector := automation.NewSelector(generator, log)
	dispatcher := automation.NewDispatcher(dbStore, gateways, throttle, selector, log)

	// 7. Start the polling worker in the background
	appWorker := worker.New(dbStore, gateways, dispatcher, oauthConfigs, log)
	appWorker.Start()
	defer appWorker.Stop()

	// 8. API server
	apiServer := api.NewServer(dbStore, googleOAuthConfig, dispatcher, log)

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080" // default port
	}

	log.Info("starting API server", zap.String("port", port), zap.String("component", "main"))

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      apiServer.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("could not start server", zap.Error(err))
	}
}
