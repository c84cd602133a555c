package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

const (
	SessionCookie = "groupchat_session"
	StateCookie   = "groupchat_oauth_state"
)

// stateTTL bounds how long a user may take on the Spotify consent screen.
const stateTTL = 10 * time.Minute

// Session identifies the caller of a request. UserID is empty until the account has connected Spotify.
type Session struct {
	AccountID string
	UserID    string
}

// Connected reports whether the session's account is linked to a Spotify user.
func (s Session) Connected() bool { return s.UserID != "" }

// TokenParser verifies a session token and returns its account ID.
type TokenParser interface {
	Parse(token string) (string, error)
}

// AccountGetter loads an account by ID.
type AccountGetter interface {
	Get(id string) (*models.Account, error)
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFrom returns the [Session] stored by [RequireSession].
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// LoadSession resolves the session cookie of r. Requests without a valid cookie, or whose account no
// longer exists, are [shared.ErrNotAuthenticated].
func LoadSession(r *http.Request, tokens TokenParser, accounts AccountGetter) (Session, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return Session{}, shared.ErrNotAuthenticated
	}

	accountID, err := tokens.Parse(cookie.Value)
	if err != nil {
		return Session{}, err
	}

	account, err := accounts.Get(accountID)
	if errors.Is(err, shared.ErrNotFound) {
		return Session{}, shared.ErrNotAuthenticated
	}
	if err != nil {
		return Session{}, err
	}

	return Session{AccountID: account.ID(), UserID: account.UserID()}, nil
}

// RequireSession rejects requests without a valid session with 401 and stores the [Session] in the
// request context otherwise.
func RequireSession(tokens TokenParser, accounts AccountGetter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := LoadSession(r, tokens, accounts)
			if errors.Is(err, shared.ErrNotAuthenticated) {
				WriteError(w, r, http.StatusUnauthorized, "login required")
				return
			}
			if err != nil {
				WriteError(w, r, http.StatusInternalServerError, "failed to load session")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// SetSessionCookie stores token in an HTTP-only cookie that expires with the token.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetStateCookie remembers the OAuth state sent to Spotify so the callback can verify it.
func SetStateCookie(w http.ResponseWriter, state string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ConsumeStateCookie checks the callback's state parameter against the state cookie and clears the
// cookie. It reports false when either is missing or they differ.
func ConsumeStateCookie(w http.ResponseWriter, r *http.Request, secure bool) bool {
	cookie, err := r.Cookie(StateCookie)
	http.SetCookie(w, &http.Cookie{Name: StateCookie, Path: "/", MaxAge: -1, HttpOnly: true, Secure: secure})
	if err != nil || cookie.Value == "" {
		return false
	}
	return cookie.Value == r.URL.Query().Get("state")
}
