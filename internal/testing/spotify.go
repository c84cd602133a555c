package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

const (
	FakeClientID     = "test_client_id"
	FakeClientSecret = "test_client_secret"
	FakeRedirectURI  = "http://localhost:5000/login/callback"
)

// RecordedRequest is a request received by [FakeSpotify].
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Query         url.Values
	Body          string
}

// FakeSpotify is an [httptest.Server] that speaks enough of the Spotify Accounts service and Web API for
// the token, playlist and profile flows.
//
// Access tokens are accepted only while they match the most recently issued one. Set the exported fields
// before issuing requests to change behavior.
type FakeSpotify struct {
	Server *httptest.Server

	// Profile is returned by GET /v1/me.
	Profile map[string]any
	// RejectAll answers every Web API request with 401.
	RejectAll bool
	// FailRefresh answers refresh grants with 400 invalid_grant.
	FailRefresh bool
	// RotateRefresh makes refresh grants return a new refresh token.
	RotateRefresh bool
	// APIStatus, when non-zero, is returned for every authorized Web API request.
	APIStatus int
	// PlaylistResponse overrides the body returned on playlist creation.
	PlaylistResponse map[string]any

	mu           sync.Mutex
	validToken   string
	issued       int
	grants       []url.Values
	requests     []RecordedRequest
	nextPlaylist int
}

// NewFakeSpotify starts a [FakeSpotify] that accepts validToken for Web API calls. It is closed on cleanup.
func NewFakeSpotify(t *testing.T, validToken string) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{
		validToken: validToken,
		Profile: map[string]any{
			"id":            "spotify-user",
			"display_name":  "Spotify User",
			"email":         "user@example.com",
			"external_urls": map[string]string{"spotify": "https://open.spotify.com/user/spotify-user"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.token)
	mux.HandleFunc("GET /v1/me", f.authorized(f.me))
	mux.HandleFunc("POST /v1/users/{user}/playlists", f.authorized(f.createPlaylist))
	mux.HandleFunc("POST /v1/playlists/{playlist}/tracks", f.authorized(f.addTracks))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Credentials returns a credentials map pointing the services at this server.
func (f *FakeSpotify) Credentials() map[string]string {
	return map[string]string{
		"client_id":     FakeClientID,
		"client_secret": FakeClientSecret,
		"redirect_uri":  FakeRedirectURI,
		"auth_base_url": f.Server.URL,
		"api_base_url":  f.Server.URL + "/v1",
	}
}

// ValidToken returns the access token currently accepted by the Web API.
func (f *FakeSpotify) ValidToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validToken
}

// Grants returns the form bodies of every token request, in order.
func (f *FakeSpotify) Grants() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.grants...)
}

// GrantCount returns the number of token requests with the given grant_type.
func (f *FakeSpotify) GrantCount(grantType string) int {
	n := 0
	for _, g := range f.Grants() {
		if g.Get("grant_type") == grantType {
			n++
		}
	}
	return n
}

// Requests returns every Web API request received, in order.
func (f *FakeSpotify) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// RequestsTo returns the Web API requests whose path has the given suffix.
func (f *FakeSpotify) RequestsTo(suffix string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range f.Requests() {
		if strings.HasSuffix(r.Path, suffix) {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeSpotify) token(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := r.BasicAuth()
	if !ok || id != FakeClientID || secret != FakeClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, r.PostForm)

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		f.issued++
		f.validToken = fmt.Sprintf("access-%d", f.issued)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  f.validToken,
			"refresh_token": "refresh-from-code",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         r.PostForm.Get("scope"),
		})
	case "refresh_token":
		if f.FailRefresh || r.PostForm.Get("refresh_token") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		f.issued++
		f.validToken = fmt.Sprintf("access-%d", f.issued)
		resp := map[string]any{
			"access_token": f.validToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if f.RotateRefresh {
			resp["refresh_token"] = fmt.Sprintf("refresh-%d", f.issued)
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

// authorized records the request and rejects tokens other than the current valid one.
func (f *FakeSpotify) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Query:         r.URL.Query(),
			Body:          string(body),
		})
		valid := !f.RejectAll && r.Header.Get("Authorization") == "Bearer "+f.validToken
		status := f.APIStatus
		f.mu.Unlock()

		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"status": 401, "message": "The access token expired"},
			})
			return
		}
		if status != 0 {
			writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": "fake failure"}})
			return
		}

		r.Body = io.NopCloser(strings.NewReader(string(body)))
		next(w, r)
	}
}

func (f *FakeSpotify) me(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	profile := f.Profile
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, profile)
}

func (f *FakeSpotify) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		Public        bool   `json:"public"`
		Collaborative bool   `json:"collaborative"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}

	f.mu.Lock()
	override := f.PlaylistResponse
	f.nextPlaylist++
	id := fmt.Sprintf("playlist-%d", f.nextPlaylist)
	f.mu.Unlock()

	if override != nil {
		writeJSON(w, http.StatusCreated, override)
		return
	}

	owner := r.PathValue("user")
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            id,
		"name":          req.Name,
		"description":   req.Description,
		"public":        req.Public,
		"collaborative": req.Collaborative,
		"href":          f.Server.URL + "/v1/playlists/" + id,
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/" + id},
		"owner":         map[string]string{"id": owner},
		"uri":           "spotify:playlist:" + id,
	})
}

func (f *FakeSpotify) addTracks(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("uris") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"status": 400, "message": "No uris provided"}})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snapshot-" + r.PathValue("playlist")})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
