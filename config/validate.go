package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
// The driver is only required when no session id is configured.
func (c *Config) Validate() error {
	if c.Account.ID == "" {
		return errors.New("account.id is required")
	}

	if err := c.SessionLocale().Validate(); err != nil {
		return fmt.Errorf("locale: %w", err)
	}

	if c.Account.SessionID == "" {
		if c.Driver.Path == "" {
			return errors.New("driver.path is required unless account.session_id is set")
		}
		if c.Driver.Port < 1 || c.Driver.Port > 65535 {
			return fmt.Errorf("driver.port must be between 1 and 65535, got %d", c.Driver.Port)
		}
	}

	u, err := url.Parse(c.HTTP.Domain)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("http.domain must be an absolute url, got %q", c.HTTP.Domain)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be > 0")
	}
	if c.HTTP.RequestsPerSecond <= 0 {
		return errors.New("http.requests_per_second must be > 0")
	}
	if c.HTTP.Burst < 1 {
		return errors.New("http.burst must be >= 1")
	}

	if c.Pipeline.Concurrency < 1 {
		return errors.New("pipeline.concurrency must be >= 1")
	}
	return nil
}
