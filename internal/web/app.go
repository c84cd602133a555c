package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/groupchat/internal/auth"
	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/server"
	"github.com/desertthunder/groupchat/internal/shared"
	"github.com/desertthunder/groupchat/internal/tasks"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Spotify is the provider side of the app. Implemented by services.SpotifyService.
type Spotify interface {
	AuthURL(state string) string
	Connect(ctx context.Context, code string) (*models.User, error)
	CreatePlaylist(ctx context.Context, user *models.User, title string) (*models.Playlist, error)
}

// Chat posts messages and reads history. Implemented by [tasks.ChatEngine].
type Chat interface {
	Post(ctx context.Context, playlistID, sender, body string) (*tasks.PostResult, error)
	History(playlistID string, limit int) ([]*models.Message, error)
}

// Store reads users and playlists. Implemented by repositories.Store.
type Store interface {
	GetUser(id string) (*models.User, error)
	GetPlaylist(id string) (*models.Playlist, error)
	ListPlaylists(ownerID string) ([]*models.Playlist, error)
}

// Deps are the collaborators of an [App].
type Deps struct {
	Accounts      *auth.AccountService
	Sessions      *auth.Sessions
	Spotify       Spotify
	Chat          Chat
	Store         Store
	SecureCookies bool
}

// App holds the handlers of the web API.
type App struct {
	accounts *auth.AccountService
	sessions *auth.Sessions
	spotify  Spotify
	chat     Chat
	store    Store
	secure   bool
	logger   *log.Logger
}

// NewApp creates an [App]. Every dependency is required.
func NewApp(deps Deps, logger *log.Logger) (*App, error) {
	if deps.Accounts == nil || deps.Sessions == nil || deps.Spotify == nil || deps.Chat == nil || deps.Store == nil {
		return nil, fmt.Errorf("%w: web app is missing a dependency", shared.ErrInvalidConfig)
	}
	if logger == nil {
		logger = log.Default()
	}

	return &App{
		accounts: deps.Accounts,
		sessions: deps.Sessions,
		spotify:  deps.Spotify,
		chat:     deps.Chat,
		store:    deps.Store,
		secure:   deps.SecureCookies,
		logger:   logger,
	}, nil
}

// Routes registers every route of the app on router.
func (a *App) Routes(router server.Router) {
	protected := server.RequireSession(a.sessions, a.accounts)

	router.Handle(http.MethodGet, "/", http.HandlerFunc(a.status))
	router.Handle(http.MethodPost, "/signup", http.HandlerFunc(a.signup))
	router.Handle(http.MethodPost, "/login", http.HandlerFunc(a.login))
	router.Handle(http.MethodPost, "/logout", http.HandlerFunc(a.logout))

	router.Handle(http.MethodGet, "/auth/spotify", protected(http.HandlerFunc(a.authorize)))
	router.Handle(http.MethodGet, server.CallbackPath, protected(http.HandlerFunc(a.callback)))

	router.Handle(http.MethodGet, "/playlists", protected(http.HandlerFunc(a.listPlaylists)))
	router.Handle(http.MethodPost, "/playlists", protected(http.HandlerFunc(a.createPlaylist)))
	router.Handle(http.MethodGet, "/playlists/{id}", protected(http.HandlerFunc(a.showPlaylist)))
	router.Handle(http.MethodGet, "/playlists/{id}/messages", protected(http.HandlerFunc(a.history)))
	router.Handle(http.MethodPost, "/playlists/{id}/messages", protected(http.HandlerFunc(a.postMessage)))
	router.Handle(http.MethodPost, "/messages", protected(http.HandlerFunc(a.postActive)))
}

// Handler returns the app behind a [server.BasicRouter] with request logging.
func (a *App) Handler() http.Handler {
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(a.logger))
	a.Routes(router)
	return router
}

// fail writes the response for err and logs server-side failures.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	if status >= 500 {
		a.logger.Error("request failed", "path", r.URL.Path, "request_id", server.RequestIDFrom(r.Context()), "error", err)
	}
	server.WriteError(w, r, status, message)
}

func statusFor(err error) int {
	switch {
	case shared.IsProviderError(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotConnected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

// session returns the session stored by [server.RequireSession].
func session(r *http.Request) (server.Session, error) {
	s, ok := server.SessionFrom(r.Context())
	if !ok {
		return server.Session{}, shared.ErrNotAuthenticated
	}
	return s, nil
}

// currentUser returns the Spotify user linked to the caller's account.
func (a *App) currentUser(r *http.Request) (*models.User, error) {
	s, err := session(r)
	if err != nil {
		return nil, err
	}
	if !s.Connected() {
		return nil, shared.ErrNotConnected
	}
	return a.store.GetUser(s.UserID)
}

// startSession issues a session token for account and sets the cookie.
func (a *App) startSession(w http.ResponseWriter, account *models.Account) error {
	token, expires, err := a.sessions.Issue(account.ID())
	if err != nil {
		return err
	}
	server.SetSessionCookie(w, token, expires, a.secure)
	return nil
}
