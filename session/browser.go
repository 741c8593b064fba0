// Package session turns an interactive browser login on the trading portal
// into a plain HTTP session.
//
// The portal has no documented HTTP login: a browser is driven through the
// login form once, its cookies are copied into an http.Client, and the
// browser is shut down. Everything after that runs over plain HTTP.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Browser enumerates the supported automation backends.
type Browser int

const (
	Firefox Browser = iota
	Chrome
)

func (b Browser) String() string {
	switch b {
	case Firefox:
		return "firefox"
	case Chrome:
		return "chrome"
	default:
		return fmt.Sprintf("browser(%d)", int(b))
	}
}

// ParseBrowser returns the Browser named by name.
func ParseBrowser(name string) (Browser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "firefox", "gecko", "geckodriver":
		return Firefox, nil
	case "chrome", "chromium", "chromedriver":
		return Chrome, nil
	default:
		return 0, fmt.Errorf("unsupported browser %q (valid: firefox, chrome)", name)
	}
}

func (b *Browser) UnmarshalText(text []byte) error {
	v, err := ParseBrowser(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (b Browser) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// DriverConfig locates the local automation driver.
type DriverConfig struct {
	Browser  Browser
	Path     string // path to geckodriver or chromedriver
	Port     int    // local port the driver listens on
	Headless bool
}

// DefaultDriverPort is used when DriverConfig.Port is zero.
const DefaultDriverPort = 4444

// Validate checks that the driver binary exists.
func (c DriverConfig) Validate() error {
	if c.Browser != Firefox && c.Browser != Chrome {
		return fmt.Errorf("unsupported browser %v", c.Browser)
	}
	if c.Path == "" {
		return errors.New("driver path is required")
	}
	if _, err := os.Stat(c.Path); err != nil {
		return fmt.Errorf("driver %s: %w", c.Browser, err)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid driver port %d", c.Port)
	}
	return nil
}

// Backend drives a browser through the login form.
//
// Implementations need not be safe for concurrent use.
type Backend interface {
	// Start launches the driver and the browser.
	Start(ctx context.Context) error
	// Navigate loads url in the browser.
	Navigate(ctx context.Context, url string) error
	// Fill types value into the input element with the given id.
	Fill(ctx context.Context, fieldID, value string) error
	// Click clicks the element with the given name attribute.
	Click(ctx context.Context, name string) error
	// Cookies returns every cookie currently held by the browser.
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	// Stop terminates the browser and the driver. It is safe to call more than once.
	Stop() error
}

// newBackend returns the Backend for cfg.Browser.
func newBackend(cfg DriverConfig) (Backend, error) {
	port := cfg.Port
	if port == 0 {
		port = DefaultDriverPort
	}
	switch cfg.Browser {
	case Firefox:
		return newGeckoBackend(cfg.Path, port, cfg.Headless), nil
	case Chrome:
		return newChromeBackend(cfg.Path, port, cfg.Headless), nil
	default:
		return nil, fmt.Errorf("unsupported browser %v", cfg.Browser)
	}
}
