package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDomain is the web trader front-end of the portal.
const DefaultDomain = "https://trader.degiro.nl"

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	defaultTimeout   = 30 * time.Second
	defaultRate      = 5
)

// rateLimitWait is the pause before retrying a 429 answer.
var rateLimitWait = 5 * time.Second

// HTTPConfig configures the plain HTTP client used after login.
type HTTPConfig struct {
	Domain            string            // scheme and host of the portal
	Headers           map[string]string // default headers sent with every request
	Timeout           time.Duration     // per request, zero means 30s
	RequestsPerSecond float64           // zero means 5
	Burst             int               // zero means RequestsPerSecond
}

func (c HTTPConfig) withDefaults() HTTPConfig {
	if c.Domain == "" {
		c.Domain = DefaultDomain
	}
	c.Domain = strings.TrimRight(c.Domain, "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRate
	}
	if c.Burst <= 0 {
		c.Burst = max(1, int(c.RequestsPerSecond))
	}
	return c
}

// Client is the cookie-carrying HTTP client shared by a Bridge and the
// sessions it produces.
//
// The cookie jar is the only mutable state; net/http/cookiejar serializes
// its updates, so responses refreshing cookies never interleave.
type Client struct {
	http    *http.Client
	jar     *cookiejar.Jar
	base    *url.URL
	headers http.Header
	limiter *rate.Limiter
}

// NewClient creates a client for cfg.Domain.
func NewClient(cfg HTTPConfig) (*Client, error) {
	cfg = cfg.withDefaults()
	base, err := url.Parse(cfg.Domain)
	if err != nil {
		return nil, fmt.Errorf("invalid portal domain %q: %w", cfg.Domain, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid portal domain %q: want scheme://host", cfg.Domain)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	headers := make(http.Header)
	headers.Set("User-Agent", defaultUserAgent)
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Jar:       jar,
			Transport: transport,
		},
		jar:     jar,
		base:    base,
		headers: headers,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

// Domain returns the portal's scheme and host, without trailing slash.
func (c *Client) Domain() string { return strings.TrimRight(c.base.String(), "/") }

// SetCookies stores cookies as if the portal had set them.
func (c *Client) SetCookies(cookies []*http.Cookie) { c.jar.SetCookies(c.base, cookies) }

// Cookies returns the cookies the client would send to the portal.
func (c *Client) Cookies() []*http.Cookie { return c.jar.Cookies(c.base) }

// Get issues a rate limited GET. A 429 answer is retried once.
func (c *Client) Get(ctx context.Context, addr string) (*http.Response, error) {
	resp, err := c.get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return resp, nil
	}
	resp.Body.Close()
	log.Printf("[session] rate limited on %s, retrying in %v", resp.Request.URL.Path, rateLimitWait)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(rateLimitWait):
	}
	return c.get(ctx, addr)
}

func (c *Client) get(ctx context.Context, addr string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create http request: %w", redact(err))
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, redact(err)
	}
	return resp, nil
}

// redact removes the query of the URL quoted by a *url.Error: report
// endpoints carry the session id in their query.
func redact(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	addr := uerr.URL
	if i := strings.IndexAny(addr, "?#"); i >= 0 {
		addr = addr[:i]
	}
	return &url.Error{Op: uerr.Op, URL: addr, Err: uerr.Err}
}
