package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/server"
	"github.com/desertthunder/groupchat/internal/shared"
	"github.com/desertthunder/groupchat/internal/tasks"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type playlistRequest struct {
	Title string `json:"title"`
}

type messageRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

type statusResponse struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
	Connected     bool   `json:"connected"`
}

type postResponse struct {
	Message  *models.Message `json:"message,omitempty"`
	TrackIDs []string        `json:"track_ids"`
	Added    int             `json:"added"`
}

func newPostResponse(result *tasks.PostResult) postResponse {
	return postResponse{Message: result.Message, TrackIDs: result.TrackIDs, Added: result.Added}
}

func (a *App) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: "ok"}
	if s, err := server.LoadSession(r, a.sessions, a.accounts); err == nil {
		resp.Authenticated = true
		resp.Connected = s.Connected()
	}
	server.WriteJSON(w, http.StatusOK, resp)
}

func (a *App) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	account, err := a.accounts.Signup(req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.startSession(w, account); err != nil {
		a.fail(w, r, err)
		return
	}

	server.WriteJSON(w, http.StatusCreated, account)
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	account, err := a.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.startSession(w, account); err != nil {
		a.fail(w, r, err)
		return
	}

	server.WriteJSON(w, http.StatusOK, account)
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	server.ClearSessionCookie(w, a.secure)
	w.WriteHeader(http.StatusNoContent)
}

// authorize sends the caller to the Spotify consent screen with a fresh state cookie.
func (a *App) authorize(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		a.fail(w, r, fmt.Errorf("failed to generate state: %w", err))
		return
	}
	server.SetStateCookie(w, state, a.secure)
	http.Redirect(w, r, a.spotify.AuthURL(state), http.StatusFound)
}

// callback completes the OAuth flow and links the Spotify user to the caller's account.
func (a *App) callback(w http.ResponseWriter, r *http.Request) {
	if !server.ConsumeStateCookie(w, r, a.secure) {
		server.WriteError(w, r, http.StatusBadRequest, "state mismatch")
		return
	}
	if reason := r.URL.Query().Get("error"); reason != "" {
		server.WriteError(w, r, http.StatusBadRequest, "authorization denied: "+reason)
		return
	}

	s, err := session(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	user, err := a.spotify.Connect(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.accounts.Link(s.AccountID, user.ID()); err != nil {
		a.fail(w, r, err)
		return
	}

	a.logger.Info("linked spotify user", "account", s.AccountID, "user", user.ID())
	http.Redirect(w, r, "/playlists", http.StatusFound)
}

func (a *App) listPlaylists(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	playlists, err := a.store.ListPlaylists(user.ID())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if playlists == nil {
		playlists = []*models.Playlist{}
	}

	server.WriteJSON(w, http.StatusOK, playlists)
}

func (a *App) createPlaylist(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var req playlistRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	playlist, err := a.spotify.CreatePlaylist(r.Context(), user, req.Title)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	server.WriteJSON(w, http.StatusCreated, playlist)
}

func (a *App) showPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := a.store.GetPlaylist(server.Var(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, playlist)
}

func (a *App) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			server.WriteError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	messages, err := a.chat.History(server.Var(r, "id"), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	server.WriteJSON(w, http.StatusOK, messages)
}

func (a *App) postMessage(w http.ResponseWriter, r *http.Request) {
	a.post(w, r, server.Var(r, "id"))
}

// postActive posts to the active playlist of the caller's Spotify user.
func (a *App) postActive(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if user.ActivePlaylistID() == "" {
		server.WriteError(w, r, http.StatusConflict, "no active playlist; create one first")
		return
	}
	a.post(w, r, user.ActivePlaylistID())
}

func (a *App) post(w http.ResponseWriter, r *http.Request, playlistID string) {
	var req messageRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	if req.Sender == "" {
		sender, err := a.defaultSender(r)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		req.Sender = sender
	}

	result, err := a.chat.Post(r.Context(), playlistID, req.Sender, req.Body)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	server.WriteJSON(w, http.StatusCreated, newPostResponse(result))
}

// defaultSender is the username of the caller's account.
func (a *App) defaultSender(r *http.Request) (string, error) {
	s, err := session(r)
	if err != nil {
		return "", err
	}
	account, err := a.accounts.Get(s.AccountID)
	if err != nil {
		return "", err
	}
	return account.Username(), nil
}
