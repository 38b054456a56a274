// Package worker runs the background poller: it walks the active platform
// connections on a ticker, keeps their OAuth tokens fresh and feeds every
// fetched comment through the dispatch pipeline.
package worker

import (
	"context"
	"fmt"
	"time"

	"social-automator-api/internal/apperr"
	"social-automator-api/internal/automation"
	"social-automator-api/internal/crypto"
	"social-automator-api/internal/domain"
	"social-automator-api/internal/platform"
	"social-automator-api/internal/store"
	"social-automator-api/internal/store/connection"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

const (
	defaultInterval = time.Minute
	cycleTimeout    = 50 * time.Second

	// Bound on connections processed in parallel per cycle. Per-platform
	// call concurrency is capped separately by the gateway throttle.
	maxParallelConnections = 8
)

// Worker is the background poller.
type Worker struct {
	store        store.Storer
	gateways     platform.Registry
	dispatcher   *automation.Dispatcher
	oauthConfigs map[domain.Platform]*oauth2.Config
	interval     time.Duration
	log          *zap.Logger
	stop         chan struct{}
}

// New creates a Worker. oauthConfigs may omit platforms; connections on
// those platforms are deactivated when their token expires.
func New(s store.Storer, gateways platform.Registry, dispatcher *automation.Dispatcher, oauthConfigs map[domain.Platform]*oauth2.Config, log *zap.Logger) *Worker {
	return &Worker{
		store:        s,
		gateways:     gateways,
		dispatcher:   dispatcher,
		oauthConfigs: oauthConfigs,
		interval:     defaultInterval,
		log:          log.With(zap.String("component", "worker")),
		stop:         make(chan struct{}),
	}
}

// Start launches the poll loop in its own goroutine.
func (w *Worker) Start() {
	w.log.Info("Starting worker", zap.Duration("interval", w.interval))
	go w.run()
}

// Stop ends the poll loop after the current cycle.
func (w *Worker) Stop() {
	close(w.stop)
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// One cycle right away at startup.
	w.doWork()

	for {
		select {
		case <-w.stop:
			w.log.Info("Worker stopped")
			return
		case <-ticker.C:
			w.doWork()
		}
	}
}

func (w *Worker) doWork() {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	if err := w.CheckConnections(ctx); err != nil {
		w.log.Error("work cycle failed", zap.Error(err))
	}
}

// CheckConnections runs one poll cycle over every active connection.
// Failures are isolated per connection.
func (w *Worker) CheckConnections(ctx context.Context) error {
	connections, err := w.store.GetActiveConnections(ctx)
	if err != nil {
		return fmt.Errorf("could not get active connections: %w", err)
	}

	w.log.Debug("poll cycle", zap.Int("connections", len(connections)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelConnections)

	for _, conn := range connections {
		conn := conn
		g.Go(func() error {
			if err := w.processConnection(ctx, conn); err != nil {
				w.log.Error("could not process connection",
					zap.Int64("connection_id", conn.ID),
					zap.String("platform", string(conn.Platform)),
					zap.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}

func (w *Worker) processConnection(ctx context.Context, conn domain.PlatformConnection) error {
	token, err := w.tokenForConnection(conn)
	if err != nil {
		return fmt.Errorf("could not prepare token: %w", err)
	}

	if conn.TokenExpired(time.Now()) {
		token, err = w.refreshToken(ctx, conn, token)
		if err != nil {
			w.deactivateConnection(ctx, conn, err)
			return err
		}
	}

	var accountID string
	if conn.AccountID != nil {
		accountID = *conn.AccountID
	}

	gw, err := w.gateways.Gateway(conn.Platform)
	if err != nil {
		return err
	}

	ok, err := w.store.ReserveQuota(ctx, conn.UserID, conn.Platform, platform.FetchCost(conn.Platform))
	if err != nil {
		return fmt.Errorf("could not reserve fetch quota: %w", err)
	}
	if !ok {
		w.log.Warn("fetch skipped, quota exhausted",
			zap.Int64("connection_id", conn.ID),
			zap.String("platform", string(conn.Platform)))
		return nil
	}

	var comments []platform.Comment
	err = platform.Retry(ctx, platform.DefaultRetryConfig(), func() error {
		var fetchErr error
		comments, fetchErr = gw.FetchComments(ctx, token.AccessToken, accountID, "")
		return fetchErr
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindCredentialExpired) {
			w.deactivateConnection(ctx, conn, err)
		}
		return fmt.Errorf("could not fetch comments: %w", err)
	}

	for _, c := range comments {
		result, err := w.dispatcher.ProcessComment(ctx, conn, token.AccessToken, c)
		if err != nil {
			w.log.Error("dispatch failed",
				zap.String("platform_comment_id", c.PlatformCommentID),
				zap.Error(err))
			continue
		}
		if result.Outcome != automation.OutcomeSkipped && result.Outcome != automation.OutcomeNoMatch {
			w.log.Info("comment dispatched",
				zap.Int64("comment_id", result.CommentID),
				zap.String("outcome", string(result.Outcome)))
		}
	}

	if err := w.store.UpdateConnectionLastSync(ctx, conn.ID); err != nil {
		w.log.Error("could not update last sync", zap.Int64("connection_id", conn.ID), zap.Error(err))
	}
	return nil
}

// tokenForConnection decrypts the stored tokens into an oauth2 token.
func (w *Worker) tokenForConnection(conn domain.PlatformConnection) (*oauth2.Token, error) {
	access, err := crypto.Decrypt(conn.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt access token: %w", err)
	}

	token := &oauth2.Token{AccessToken: string(access)}
	if conn.TokenExpiresAt != nil {
		token.Expiry = *conn.TokenExpiresAt
	}

	if len(conn.RefreshToken) > 0 {
		refresh, err := crypto.Decrypt(conn.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("could not decrypt refresh token: %w", err)
		}
		token.RefreshToken = string(refresh)
	}

	return token, nil
}

func (w *Worker) refreshToken(ctx context.Context, conn domain.PlatformConnection, token *oauth2.Token) (*oauth2.Token, error) {
	cfg, ok := w.oauthConfigs[conn.Platform]
	if !ok || token.RefreshToken == "" {
		return nil, apperr.New(apperr.KindCredentialExpired, "token expired and cannot be refreshed")
	}

	newToken, err := cfg.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCredentialExpired, "token refresh failed", err)
	}

	var expiry *time.Time
	if !newToken.Expiry.IsZero() {
		expiry = &newToken.Expiry
	}
	err = w.store.UpdateConnectionTokens(ctx, connection.UpdateTokensParams{
		ConnectionID:    conn.ID,
		NewAccessToken:  newToken.AccessToken,
		NewRefreshToken: newToken.RefreshToken,
		NewExpiry:       expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("could not persist refreshed tokens: %w", err)
	}

	w.log.Info("refreshed connection tokens", zap.Int64("connection_id", conn.ID))
	return newToken, nil
}

func (w *Worker) deactivateConnection(ctx context.Context, conn domain.PlatformConnection, cause error) {
	w.log.Warn("deactivating connection with expired credentials",
		zap.Int64("connection_id", conn.ID),
		zap.Error(cause))

	if err := w.store.SetConnectionActive(ctx, conn.ID, false); err != nil {
		w.log.Error("could not deactivate connection", zap.Int64("connection_id", conn.ID), zap.Error(err))
	}
}
