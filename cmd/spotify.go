package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/server"
	"github.com/desertthunder/groupchat/internal/shared"
)

// loginTimeout bounds how long the login command waits for the browser callback.
const loginTimeout = 2 * time.Minute

// SpotifyLogin connects a Spotify account.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization, and stores
// the user once the callback has exchanged the code.
func (r *Runner) SpotifyLogin(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.openSpotify(); err != nil {
		return err
	}

	user, err := r.doOAuth(ctx, !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	r.writePlainln("✓ Connected as %s (%s)", user.Name(), user.Email())
	r.writePlain("You can now use: groupchat playlist create --title \"Road Trip\"\n")
	return nil
}

// SpotifyURL prints the authorization URL with a fresh state token.
func (r *Runner) SpotifyURL(ctx context.Context, cmd *cli.Command) error {
	spotify, err := r.openSpotify()
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	return r.writePlain("%s\n", spotify.AuthURL(state))
}

// SpotifyWhoami fetches the current Spotify profile of a connected user.
func (r *Runner) SpotifyWhoami(ctx context.Context, cmd *cli.Command) error {
	spotify, err := r.openSpotify()
	if err != nil {
		return err
	}

	user, err := r.resolveUser(cmd.String("email"))
	if err != nil {
		return err
	}

	profile, err := spotify.Profile(ctx, user)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(profile, true)
	}

	r.writePlain("Name: %s\n", profile.DisplayName)
	r.writePlain("Email: %s\n", profile.Email)
	r.writePlain("ID: %s\n", profile.ID)
	r.writePlain("Profile: %s\n", profile.ExternalURLs.Spotify)
	if id := user.ActivePlaylistID(); id != "" {
		r.writePlain("Active playlist: %s\n", id)
	}
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, openBrowser bool) (*models.User, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	addr, path, err := callbackAddr(r.config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return nil, err
	}

	authURL := r.spotify.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(r.spotify, state, path)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", addr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	if openBrowser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	} else {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.User == nil {
		return nil, fmt.Errorf("%w: no user received", shared.ErrAuthFailed)
	}

	return result.User, nil
}

// callbackAddr returns the listen address and path of a local redirect URI.
func callbackAddr(redirectURI string) (string, string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: invalid redirect_uri %q", shared.ErrInvalidConfig, redirectURI)
	}

	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		return "", "", fmt.Errorf("%w: login needs a local redirect_uri, got %q", shared.ErrInvalidConfig, redirectURI)
	}

	port := u.Port()
	if port == "" {
		port = "80"
	}

	path := u.Path
	if path == "" {
		path = server.CallbackPath
	}
	return net.JoinHostPort(host, port), path, nil
}
