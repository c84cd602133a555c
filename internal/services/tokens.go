package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

const (
	// Scope is the fixed set of permissions requested from every user.
	Scope = "user-read-email playlist-modify-public playlist-modify-private"

	defaultAuthBaseURL = "https://accounts.spotify.com"
	defaultAPIBaseURL  = "https://api.spotify.com/v1"
)

// TokenManager owns the OAuth lifecycle of Spotify users: authorization URL, code exchange and refresh.
type TokenManager struct {
	config *oauth2.Config
	client *http.Client
	users  UserStore
	logger *log.Logger
}

// NewTokenManager creates a [TokenManager] from a credentials map with client_id, client_secret,
// redirect_uri and optionally auth_base_url.
func NewTokenManager(credentials map[string]string, users UserStore, client *http.Client, logger *log.Logger) (*TokenManager, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	authBase := strings.TrimRight(credentials["auth_base_url"], "/")
	if authBase == "" {
		authBase = defaultAuthBaseURL
	}

	if client == nil {
		client = NewHTTPClient(0)
	}
	if logger == nil {
		logger = log.Default()
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  credentials["redirect_uri"],
		Scopes:       strings.Fields(Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:   authBase + "/authorize",
			TokenURL:  authBase + "/api/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &TokenManager{config: config, client: client, users: users, logger: logger}, nil
}

// AuthURL returns the authorization URL the user visits to grant access.
//
// show_dialog is always set so the user can switch Spotify accounts.
func (m *TokenManager) AuthURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// Exchange trades an authorization code for an access and refresh token.
func (m *TokenManager) Exchange(ctx context.Context, code string) (*models.TokenPair, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", shared.ErrInvalidInput)
	}

	token, err := m.config.Exchange(m.withClient(ctx), code)
	if err != nil {
		return nil, tokenError("exchange code", err)
	}

	if token.AccessToken == "" || token.RefreshToken == "" {
		return nil, shared.NewProviderError("exchange code", http.StatusOK,
			fmt.Errorf("%w: token response missing access_token or refresh_token", shared.ErrMalformedResponse))
	}

	m.logger.Debug("exchanged authorization code", "expiry", token.Expiry)
	return &models.TokenPair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}, nil
}

// Refresh obtains a new access token for user and saves the user exactly once.
//
// The refresh token is kept unless Spotify returns a new one. On any failure the user's tokens are left
// unchanged, both in memory and in storage.
func (m *TokenManager) Refresh(ctx context.Context, user *models.User) (*models.User, error) {
	if user.RefreshToken() == "" {
		return nil, shared.NewProviderError("refresh token", 0, shared.ErrNoRefreshToken)
	}

	source := m.config.TokenSource(m.withClient(ctx), &oauth2.Token{RefreshToken: user.RefreshToken()})
	token, err := source.Token()
	if err != nil {
		return nil, tokenError("refresh token", err)
	}

	previous := user.Tokens()
	next := models.TokenPair{AccessToken: token.AccessToken, RefreshToken: previous.RefreshToken}
	if token.RefreshToken != "" {
		next.RefreshToken = token.RefreshToken
	}

	user.SetTokens(next)
	if err := m.users.SaveUser(user); err != nil {
		user.SetTokens(previous)
		return nil, fmt.Errorf("failed to save refreshed tokens: %w", err)
	}

	m.logger.Debug("refreshed access token", "user", user.ID(), "rotated", next.RefreshToken != previous.RefreshToken)
	return user, nil
}

func (m *TokenManager) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

// tokenError converts an oauth2 failure into a [shared.ProviderError], keeping the HTTP status when one was received.
func tokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return shared.NewProviderError(op, re.Response.StatusCode, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err))
	}
	return shared.NewProviderError(op, 0, err)
}
