package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
)

// webDriver is a W3C WebDriver backend: a local driver service plus a remote
// session opened against it.
type webDriver struct {
	browser Browser
	port    int

	newService func(port int) (*selenium.Service, error)
	caps       selenium.Capabilities

	mu      sync.Mutex
	service *selenium.Service
	wd      selenium.WebDriver
}

func newGeckoBackend(path string, port int, headless bool) *webDriver {
	caps := selenium.Capabilities{"browserName": "firefox"}
	var args []string
	if headless {
		args = append(args, "-headless")
	}
	caps.AddFirefox(firefox.Capabilities{Args: args})
	return &webDriver{
		browser: Firefox,
		port:    port,
		caps:    caps,
		newService: func(port int) (*selenium.Service, error) {
			return selenium.NewGeckoDriverService(path, port)
		},
	}
}

func newChromeBackend(path string, port int, headless bool) *webDriver {
	caps := selenium.Capabilities{"browserName": "chrome"}
	args := []string{"--no-sandbox"}
	if headless {
		args = append(args, "--headless=new")
	}
	caps.AddChrome(chrome.Capabilities{Args: args})
	return &webDriver{
		browser: Chrome,
		port:    port,
		caps:    caps,
		newService: func(port int) (*selenium.Service, error) {
			return selenium.NewChromeDriverService(path, port)
		},
	}
}

func (w *webDriver) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	service, err := w.newService(w.port)
	if err != nil {
		return fmt.Errorf("starting %s driver service: %w", w.browser, err)
	}
	wd, err := selenium.NewRemote(w.caps, fmt.Sprintf("http://localhost:%d", w.port))
	if err != nil {
		service.Stop()
		return fmt.Errorf("opening %s session: %w", w.browser, err)
	}
	w.service, w.wd = service, wd
	return nil
}

func (w *webDriver) driver(ctx context.Context) (selenium.WebDriver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wd == nil {
		return nil, fmt.Errorf("%s backend is not started", w.browser)
	}
	return w.wd, nil
}

func (w *webDriver) Navigate(ctx context.Context, url string) error {
	wd, err := w.driver(ctx)
	if err != nil {
		return err
	}
	return wd.Get(url)
}

func (w *webDriver) Fill(ctx context.Context, fieldID, value string) error {
	wd, err := w.driver(ctx)
	if err != nil {
		return err
	}
	elem, err := wd.FindElement(selenium.ByID, fieldID)
	if err != nil {
		return fmt.Errorf("finding field %q: %w", fieldID, err)
	}
	return elem.SendKeys(value)
}

func (w *webDriver) Click(ctx context.Context, name string) error {
	wd, err := w.driver(ctx)
	if err != nil {
		return err
	}
	elem, err := wd.FindElement(selenium.ByName, name)
	if err != nil {
		return fmt.Errorf("finding control %q: %w", name, err)
	}
	return elem.Click()
}

func (w *webDriver) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	wd, err := w.driver(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := wd.GetCookies()
	if err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		hc := &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   c.Path,
			Domain: c.Domain,
			Secure: c.Secure,
		}
		if c.Expiry > 0 {
			hc.Expires = time.Unix(int64(c.Expiry), 0)
		}
		cookies = append(cookies, hc)
	}
	return cookies, nil
}

func (w *webDriver) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var quitErr, stopErr error
	if w.wd != nil {
		quitErr = w.wd.Quit()
		w.wd = nil
	}
	if w.service != nil {
		stopErr = w.service.Stop()
		w.service = nil
	}
	if quitErr != nil {
		return fmt.Errorf("quitting %s: %w", w.browser, quitErr)
	}
	return stopErr
}
