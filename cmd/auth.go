package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization,
// exchanges the auth code for tokens, and stores the credential keyed by the
// user's Spotify ID.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil || r.spotify == nil {
		return fmt.Errorf("%w: Spotify credentials not configured, run 'spx setup' first", shared.ErrServiceUnavailable)
	}
	if r.access == nil {
		return fmt.Errorf("%w: credential store not initialized", shared.ErrServiceUnavailable)
	}

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	profile, err := r.spotify.UserProfile(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to fetch user profile: %w", err)
	}

	if err := r.access.StoreGrant(ctx, profile.ID, token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	r.logger.Info("credential stored", "user", profile.ID)

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Logged in as %s", profile.ID)
	if profile.DisplayName != "" {
		r.writePlain(" (%s)", profile.DisplayName)
	}
	r.writePlain("\n\nYou can now use: spx playlists list\n")

	return nil
}

// AuthStatus shows the stored credential for a user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.repo == nil {
		return fmt.Errorf("%w: credential store not initialized", shared.ErrServiceUnavailable)
	}

	userID, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	cred, err := r.repo.Get(userID)
	if err != nil {
		return err
	}

	r.writePlain("User: %s\n", cred.UserID)
	r.writePlain("Scope: %s\n", cred.Scope)
	if time.Now().Before(cred.ExpiresAt) {
		r.writePlain("Access token: ✓ valid until %s\n", cred.ExpiresAt.Format(time.RFC3339))
	} else {
		r.writePlain("Access token: ✗ expired at %s (will refresh on next use)\n", cred.ExpiresAt.Format(time.RFC3339))
	}
	r.writePlain("Last updated: %s\n", cred.UpdatedAt.Format(time.RFC3339))

	return nil
}

// AuthLogout deletes the stored credential for a user.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.repo == nil {
		return fmt.Errorf("%w: credential store not initialized", shared.ErrServiceUnavailable)
	}

	userID, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	if err := r.repo.Delete(userID); err != nil {
		return err
	}

	r.logger.Info("credential deleted", "user", userID)
	return r.writePlain("✓ Logged out %s\n", userID)
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	state := shared.GenerateID()

	authURL := r.auth.AuthURL(state)
	callbackHandler := server.NewCallbackHandler(r.auth, state)
	router := server.NewBasicRouter()
	router.Handler(callbackHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-callbackHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
