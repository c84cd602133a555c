// Spotify Web API operations used by the group chat.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

const (
	// PlaylistDescription is set on every playlist created by the service.
	PlaylistDescription = "Spotify SMS Playlist"

	// MaxTracksPerRequest is the most track URIs Spotify accepts in one add request.
	MaxTracksPerRequest = 100
)

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyUser represents the current user's profile returned by GET /me.
type SpotifyUser struct {
	ID           string         `json:"id"`
	DisplayName  string         `json:"display_name"`
	Email        string         `json:"email"`
	Country      string         `json:"country"`
	Product      string         `json:"product"`
	ExternalURLs externalURLs   `json:"external_urls"`
	Images       []SpotifyImage `json:"images"`
}

// Owner is the owner of a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents the playlist object returned on creation.
type SpotifyPlaylist struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Href          string       `json:"href"`
	Owner         Owner        `json:"owner"`
	Public        bool         `json:"public"`
	Collaborative bool         `json:"collaborative"`
	ExternalURLs  externalURLs `json:"external_urls"`
	URI           string       `json:"uri"`
}

type createPlaylistRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Public        bool   `json:"public"`
	Collaborative bool   `json:"collaborative"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// SpotifyService creates and fills collaborative playlists for stored users.
type SpotifyService struct {
	apiBase  string
	tokens   *TokenManager
	executor *Executor
	store    Store
	logger   *log.Logger
}

// NewSpotifyService creates a [SpotifyService] from a credentials map (see [NewTokenManager]) with an
// optional api_base_url.
func NewSpotifyService(credentials map[string]string, store Store, client *http.Client, logger *log.Logger) (*SpotifyService, error) {
	if client == nil {
		client = NewHTTPClient(0)
	}
	if logger == nil {
		logger = log.Default()
	}

	tokens, err := NewTokenManager(credentials, store, client, logger)
	if err != nil {
		return nil, err
	}

	apiBase := strings.TrimRight(credentials["api_base_url"], "/")
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}

	return &SpotifyService{
		apiBase:  apiBase,
		tokens:   tokens,
		executor: NewExecutor(client, tokens, logger),
		store:    store,
		logger:   logger,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Tokens returns the service's [TokenManager].
func (s *SpotifyService) Tokens() *TokenManager {
	return s.tokens
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.tokens.AuthURL(state)
}

// CreatePlaylist creates a private collaborative playlist titled title on user's account, stores it,
// and makes it the user's active playlist.
//
// Nothing is persisted when the API call fails. When the user cannot be saved the stored playlist is
// removed again and the user's active playlist is left as it was.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, user *models.User, title string) (*models.Playlist, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: playlist title is required", shared.ErrInvalidInput)
	}

	req := Request{
		Method: http.MethodPost,
		URL:    s.apiBase + "/users/" + url.PathEscape(user.ID()) + "/playlists",
		Body: createPlaylistRequest{
			Name:          title,
			Description:   PlaylistDescription,
			Public:        false,
			Collaborative: true,
		},
	}

	var created SpotifyPlaylist
	if err := s.executor.Call(ctx, user, req, &created); err != nil {
		return nil, err
	}

	if created.ID == "" || created.ExternalURLs.Spotify == "" || created.Href == "" || created.Owner.ID == "" {
		return nil, shared.NewProviderError(req.op(), http.StatusCreated,
			fmt.Errorf("%w: playlist response missing id, external_urls.spotify, href or owner.id", shared.ErrMalformedResponse))
	}

	playlist := models.NewPlaylist(created.ID, title, created.ExternalURLs.Spotify, created.Href, created.Owner.ID)
	if err := s.store.SavePlaylist(playlist); err != nil {
		return nil, fmt.Errorf("failed to save playlist: %w", err)
	}

	previous := user.ActivePlaylistID()
	user.SetActivePlaylistID(playlist.ID())
	if err := s.store.SaveUser(user); err != nil {
		user.SetActivePlaylistID(previous)
		err = fmt.Errorf("failed to save active playlist: %w", err)
		if rmErr := s.store.RemovePlaylist(playlist.ID()); rmErr != nil {
			s.logger.Error("failed to remove orphaned playlist", "playlist", playlist.ID(), "error", rmErr)
			return nil, errors.Join(err, fmt.Errorf("failed to remove playlist %s: %w", playlist.ID(), rmErr))
		}
		return nil, err
	}

	s.logger.Info("created playlist", "playlist", playlist.ID(), "owner", playlist.OwnerID(), "title", title)
	return playlist, nil
}

// AddTracksToPlaylist appends trackIDs, in order, to playlist using the owner's stored credentials.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlist *models.Playlist, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: no track ids to add", shared.ErrInvalidInput)
	}
	if len(trackIDs) > MaxTracksPerRequest {
		return fmt.Errorf("%w: at most %d tracks per request, got %d", shared.ErrInvalidInput, MaxTracksPerRequest, len(trackIDs))
	}

	owner, err := s.store.GetUser(playlist.OwnerID())
	if err != nil {
		return fmt.Errorf("playlist %s owner: %w", playlist.ID(), err)
	}

	req := Request{
		Method: http.MethodPost,
		URL:    strings.TrimRight(playlist.Endpoint(), "/") + "/tracks",
		Query:  url.Values{"uris": {TrackURIs(trackIDs)}},
	}

	var snapshot snapshotResponse
	if err := s.executor.Call(ctx, owner, req, &snapshot); err != nil {
		return err
	}

	s.logger.Debug("added tracks", "playlist", playlist.ID(), "count", len(trackIDs), "snapshot", snapshot.SnapshotID)
	return nil
}

// Connect completes the OAuth redirect: it exchanges code for tokens, fetches the profile, and creates the
// user or updates the tokens of the user with the same email.
func (s *SpotifyService) Connect(ctx context.Context, code string) (*models.User, error) {
	pair, err := s.tokens.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	req := Request{Method: http.MethodGet, URL: s.apiBase + "/me"}

	var profile SpotifyUser
	if err := s.executor.Once(ctx, pair.AccessToken, req, &profile); err != nil {
		return nil, err
	}

	if profile.ID == "" || profile.Email == "" || profile.ExternalURLs.Spotify == "" {
		return nil, shared.NewProviderError(req.op(), http.StatusOK,
			fmt.Errorf("%w: profile missing id, email or external_urls.spotify", shared.ErrMalformedResponse))
	}

	user, err := s.store.FindUserByEmail(profile.Email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		user = models.NewUser(profile.ID, profile.Email, *pair)
		user.SetDisplayName(profile.DisplayName)
		user.SetURL(profile.ExternalURLs.Spotify)
		s.logger.Info("connected new spotify user", "user", user.ID())
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	default:
		user.SetTokens(*pair)
		s.logger.Info("reconnected spotify user", "user", user.ID())
	}

	if err := s.store.SaveUser(user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	return user, nil
}

// Profile fetches the current profile of user through the refreshing executor.
func (s *SpotifyService) Profile(ctx context.Context, user *models.User) (*SpotifyUser, error) {
	var profile SpotifyUser
	req := Request{Method: http.MethodGet, URL: s.apiBase + "/me"}
	if err := s.executor.Call(ctx, user, req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// TrackURIs joins track ids as comma-separated spotify:track URIs, preserving order.
func TrackURIs(trackIDs []string) string {
	uris := make([]string, len(trackIDs))
	for i, id := range trackIDs {
		uris[i] = "spotify:track:" + id
	}
	return strings.Join(uris, ",")
}
