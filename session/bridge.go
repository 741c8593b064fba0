package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// Login form element identifiers.
const (
	UsernameField = "username"
	PasswordField = "password"
	SubmitButton  = "loginButtonUniversal"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	defaultLoginTimeout = 20 * time.Second
)

// Bridge performs the interactive login and hands out Sessions.
//
// A Bridge owns a running browser: callers must Close it, whether or not
// Login succeeded.
type Bridge struct {
	accountID string
	backend   Backend
	client    *Client

	// PollInterval and LoginTimeout bound the wait for the session cookie
	// after the login form is submitted.
	PollInterval time.Duration
	LoginTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Open validates the configuration, creates the HTTP client and starts the
// automation backend. It makes no request to the portal.
func Open(ctx context.Context, accountID string, driver DriverConfig, httpc HTTPConfig) (*Bridge, error) {
	if err := driver.Validate(); err != nil {
		return nil, fmt.Errorf("invalid driver configuration: %w", err)
	}
	backend, err := newBackend(driver)
	if err != nil {
		return nil, err
	}
	return open(ctx, accountID, backend, httpc)
}

// open is Open with an explicit backend.
func open(ctx context.Context, accountID string, backend Backend, httpc HTTPConfig) (*Bridge, error) {
	if accountID == "" {
		return nil, errors.New("account id is required")
	}
	client, err := NewClient(httpc)
	if err != nil {
		return nil, err
	}
	if err := backend.Start(ctx); err != nil {
		// a partially started driver must not outlive us.
		backend.Stop()
		return nil, fmt.Errorf("starting automation backend: %w", err)
	}
	return &Bridge{
		accountID:    accountID,
		backend:      backend,
		client:       client,
		PollInterval: defaultPollInterval,
		LoginTimeout: defaultLoginTimeout,
	}, nil
}

// Login submits the portal login form and waits for the session cookie.
//
// Every browser cookie is copied into the HTTP client and the returned
// Session carries the JSESSIONID value as its token.
func (b *Bridge) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, &AuthenticationError{AccountID: b.accountID, Reason: "empty username or password"}
	}

	loginURL := b.client.Domain() + "/login"
	log.Printf("[session] logging in account %s at %s", b.accountID, loginURL)
	if err := b.backend.Navigate(ctx, loginURL); err != nil {
		return nil, fmt.Errorf("loading login page: %w", err)
	}
	if err := b.backend.Fill(ctx, UsernameField, username); err != nil {
		return nil, &AuthenticationError{AccountID: b.accountID, Reason: "login form changed", Err: err}
	}
	if err := b.backend.Fill(ctx, PasswordField, password); err != nil {
		return nil, &AuthenticationError{AccountID: b.accountID, Reason: "login form changed", Err: err}
	}
	if err := b.backend.Click(ctx, SubmitButton); err != nil {
		return nil, &AuthenticationError{AccountID: b.accountID, Reason: "login form changed", Err: err}
	}

	cookies, token, err := b.awaitSessionCookie(ctx)
	if err != nil {
		return nil, err
	}
	b.client.SetCookies(cookies)
	log.Printf("[session] account %s logged in, %d cookies transferred", b.accountID, len(cookies))
	return newSession(b.accountID, token, b.client), nil
}

// awaitSessionCookie polls the browser cookies until the session cookie shows up.
func (b *Bridge) awaitSessionCookie(ctx context.Context) ([]*http.Cookie, string, error) {
	interval, timeout := b.PollInterval, b.LoginTimeout
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		cookies, err := b.backend.Cookies(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("reading browser cookies: %w", err)
		}
		for _, c := range cookies {
			if c.Name == CookieName && c.Value != "" {
				return cookies, c.Value, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-deadline.C:
			return nil, "", &AuthenticationError{
				AccountID: b.accountID,
				Reason:    fmt.Sprintf("no %s cookie after %v (wrong credentials, changed login form or captcha)", CookieName, timeout),
			}
		case <-tick.C:
		}
	}
}

// Close terminates the automation backend. It is safe to call more than once.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.backend.Stop()
		if b.closeErr != nil {
			log.Printf("[session] stopping automation backend: %v", b.closeErr)
		}
	})
	return b.closeErr
}
