package session

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// CookieName is the portal cookie that identifies an authenticated session.
const CookieName = "JSESSIONID"

// ErrNotLoggedIn is returned when a data call is made without a session token.
var ErrNotLoggedIn = errors.New("not logged in: session token is empty")

// AuthenticationError reports a login that did not produce a session cookie:
// wrong credentials, a changed login form, or bot detection.
type AuthenticationError struct {
	AccountID string
	Reason    string
	Err       error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("authentication failed for account %s: %s", e.AccountID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Session is an authenticated portal session.
//
// A Session is immutable once returned by Login or Resume and may be shared
// read-only by every data source built against it. Only the cookie jar of
// its client changes, as the portal refreshes cookies.
type Session struct {
	AccountID string
	Token     string // value of the JSESSIONID cookie

	client *Client
	run    *sync.Mutex
}

func newSession(accountID, token string, client *Client) *Session {
	return &Session{AccountID: accountID, Token: token, client: client, run: new(sync.Mutex)}
}

// Resume builds a Session from a session id obtained earlier, without a browser.
func Resume(accountID, token string, cfg HTTPConfig) (*Session, error) {
	if accountID == "" {
		return nil, errors.New("account id is required")
	}
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	client.SetCookies([]*http.Cookie{{Name: CookieName, Value: token, Path: "/"}})
	return newSession(accountID, token, client), nil
}

// Valid returns ErrNotLoggedIn unless the session carries a token.
func (s *Session) Valid() error {
	if s == nil || s.Token == "" || s.client == nil {
		return ErrNotLoggedIn
	}
	return nil
}

// Domain returns the portal's scheme and host.
func (s *Session) Domain() string { return s.client.Domain() }

// Client returns the HTTP client carrying the session cookies.
func (s *Session) Client() *Client { return s.client }

// Exclusive locks the session for a single pipeline run and returns the
// release function. Two runs on one session would interleave cookie
// refreshes from unrelated requests.
func (s *Session) Exclusive() (release func()) {
	s.run.Lock()
	return s.run.Unlock
}
