package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

// fakeBackend simulates a browser: the session cookie appears only after the
// submit button was clicked and cookiesAfter polls happened.
type fakeBackend struct {
	startErr     error
	fillErr      error
	cookiesAfter int
	noSession    bool

	calls   []string
	fields  map[string]string
	clicked bool
	polls   int
	stops   int
}

func (f *fakeBackend) Start(context.Context) error {
	f.calls = append(f.calls, "start")
	return f.startErr
}

func (f *fakeBackend) Navigate(_ context.Context, url string) error {
	f.calls = append(f.calls, "navigate "+url)
	return nil
}

func (f *fakeBackend) Fill(_ context.Context, id, value string) error {
	if f.fillErr != nil {
		return f.fillErr
	}
	if f.fields == nil {
		f.fields = make(map[string]string)
	}
	f.fields[id] = value
	return nil
}

func (f *fakeBackend) Click(_ context.Context, name string) error {
	f.calls = append(f.calls, "click "+name)
	f.clicked = true
	return nil
}

func (f *fakeBackend) Cookies(context.Context) ([]*http.Cookie, error) {
	cookies := []*http.Cookie{{Name: "CookieConsent", Value: "yes"}}
	if !f.clicked || f.noSession {
		return cookies, nil
	}
	f.polls++
	if f.polls <= f.cookiesAfter {
		return cookies, nil
	}
	return append(cookies, &http.Cookie{Name: CookieName, Value: "abc123.prod_b_126_4"}), nil
}

func (f *fakeBackend) Stop() error {
	f.stops++
	return nil
}

func TestParseBrowser(t *testing.T) {
	tests := []struct {
		in      string
		want    Browser
		wantErr bool
	}{
		{"firefox", Firefox, false},
		{"Chrome", Chrome, false},
		{" geckodriver ", Firefox, false},
		{"safari", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBrowser(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBrowser(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBrowser(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDriverConfigValidate(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "geckodriver")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := (DriverConfig{Browser: Firefox, Path: bin}).Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
	if err := (DriverConfig{Browser: Firefox}).Validate(); err == nil {
		t.Error("Validate() without a path expected an error")
	}
	if err := (DriverConfig{Browser: Chrome, Path: bin + ".missing"}).Validate(); err == nil {
		t.Error("Validate() with a missing binary expected an error")
	}
	if err := (DriverConfig{Browser: Browser(7), Path: bin}).Validate(); err == nil {
		t.Error("Validate() with an unknown browser expected an error")
	}
}

func TestLoginTransfersCookies(t *testing.T) {
	var gotCookies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, c := range r.Cookies() {
			gotCookies = append(gotCookies, c.Name+"="+c.Value)
		}
		if r.Header.Get("X-Test") != "on" {
			t.Errorf("default header X-Test missing")
		}
	}))
	defer srv.Close()

	backend := &fakeBackend{cookiesAfter: 2}
	b, err := open(context.Background(), "1234567", backend, HTTPConfig{Domain: srv.URL, Headers: map[string]string{"X-Test": "on"}})
	if err != nil {
		t.Fatalf("open() unexpected error: %v", err)
	}
	defer b.Close()
	b.PollInterval = time.Millisecond

	s, err := b.Login(context.Background(), "jdoe", "secret")
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if s.Token != "abc123.prod_b_126_4" {
		t.Errorf("Login().Token = %q, want %q", s.Token, "abc123.prod_b_126_4")
	}
	if s.AccountID != "1234567" {
		t.Errorf("Login().AccountID = %q, want 1234567", s.AccountID)
	}
	if backend.fields[UsernameField] != "jdoe" || backend.fields[PasswordField] != "secret" {
		t.Errorf("login form filled with %v", backend.fields)
	}
	wantCalls := []string{"start", "navigate " + srv.URL + "/login", "click " + SubmitButton}
	if !slices.Equal(backend.calls, wantCalls) {
		t.Errorf("backend calls = %v, want %v", backend.calls, wantCalls)
	}

	resp, err := s.Client().Get(context.Background(), srv.URL+"/reporting")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	resp.Body.Close()
	slices.Sort(gotCookies)
	want := []string{"CookieConsent=yes", CookieName + "=abc123.prod_b_126_4"}
	if !slices.Equal(gotCookies, want) {
		t.Errorf("cookies sent = %v, want %v", gotCookies, want)
	}
}

func TestLoginWithoutSessionCookie(t *testing.T) {
	backend := &fakeBackend{noSession: true}
	b, err := open(context.Background(), "1234567", backend, HTTPConfig{Domain: "https://portal.example"})
	if err != nil {
		t.Fatalf("open() unexpected error: %v", err)
	}
	b.PollInterval = time.Millisecond
	b.LoginTimeout = 20 * time.Millisecond

	_, err = b.Login(context.Background(), "jdoe", "wrong")
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login() error = %v, want *AuthenticationError", err)
	}
	if authErr.AccountID != "1234567" {
		t.Errorf("AuthenticationError.AccountID = %q", authErr.AccountID)
	}

	b.Close()
	b.Close()
	if backend.stops != 1 {
		t.Errorf("backend stopped %d times, want 1", backend.stops)
	}
}

func TestLoginFormChanged(t *testing.T) {
	backend := &fakeBackend{fillErr: errors.New("no such element")}
	b, err := open(context.Background(), "1", backend, HTTPConfig{Domain: "https://portal.example"})
	if err != nil {
		t.Fatalf("open() unexpected error: %v", err)
	}
	defer b.Close()
	_, err = b.Login(context.Background(), "jdoe", "secret")
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login() error = %v, want *AuthenticationError", err)
	}
}

func TestLoginEmptyCredentials(t *testing.T) {
	backend := &fakeBackend{}
	b, err := open(context.Background(), "1", backend, HTTPConfig{Domain: "https://portal.example"})
	if err != nil {
		t.Fatalf("open() unexpected error: %v", err)
	}
	defer b.Close()
	_, err = b.Login(context.Background(), "", "")
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login() error = %v, want *AuthenticationError", err)
	}
	if len(backend.calls) != 1 {
		t.Errorf("backend used before credentials were checked: %v", backend.calls)
	}
}

func TestLoginCancelled(t *testing.T) {
	backend := &fakeBackend{noSession: true}
	b, err := open(context.Background(), "1", backend, HTTPConfig{Domain: "https://portal.example"})
	if err != nil {
		t.Fatalf("open() unexpected error: %v", err)
	}
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Login(ctx, "jdoe", "secret"); !errors.Is(err, context.Canceled) {
		t.Errorf("Login() error = %v, want context.Canceled", err)
	}
}

func TestOpenStopsBackendWhenStartFails(t *testing.T) {
	backend := &fakeBackend{startErr: errors.New("port in use")}
	if _, err := open(context.Background(), "1", backend, HTTPConfig{}); err == nil {
		t.Fatal("open() expected an error")
	}
	if backend.stops != 1 {
		t.Errorf("backend stopped %d times, want 1", backend.stops)
	}
}

func TestResume(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil {
			got = c.Value
		}
	}))
	defer srv.Close()

	s, err := Resume("1", "tok", HTTPConfig{Domain: srv.URL})
	if err != nil {
		t.Fatalf("Resume() unexpected error: %v", err)
	}
	if err := s.Valid(); err != nil {
		t.Errorf("Valid() = %v, want nil", err)
	}
	resp, err := s.Client().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	resp.Body.Close()
	if got != "tok" {
		t.Errorf("server saw %s=%q, want tok", CookieName, got)
	}

	if _, err := Resume("1", "", HTTPConfig{}); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Resume() with empty token error = %v, want ErrNotLoggedIn", err)
	}
}

func TestSessionValid(t *testing.T) {
	var s *Session
	if !errors.Is(s.Valid(), ErrNotLoggedIn) {
		t.Error("nil session must not be valid")
	}
	if !errors.Is((&Session{AccountID: "1"}).Valid(), ErrNotLoggedIn) {
		t.Error("session without token must not be valid")
	}
}

func TestNewClientInvalidDomain(t *testing.T) {
	if _, err := NewClient(HTTPConfig{Domain: "trader.degiro.nl"}); err == nil {
		t.Error("NewClient() without scheme expected an error")
	}
}
