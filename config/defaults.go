package config

import (
	"time"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/session"
)

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	l := degiro.DefaultLocale()
	if c.Locale.Country == "" {
		c.Locale.Country = l.Country
	}
	if c.Locale.Language == "" {
		c.Locale.Language = l.Language
	}
	if c.Locale.Timezone == "" {
		c.Locale.Timezone = l.Timezone
	}
	if c.Locale.DateFormat == "" {
		c.Locale.DateFormat = l.DateFormat
	}
	if c.Locale.Encoding == "" {
		c.Locale.Encoding = l.Encoding
	}
	if c.Locale.Decimal == "" {
		c.Locale.Decimal = string(l.Decimal)
	}

	if c.Driver.Port == 0 {
		c.Driver.Port = session.DefaultDriverPort
	}

	if c.HTTP.Domain == "" {
		c.HTTP.Domain = session.DefaultDomain
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.RequestsPerSecond == 0 {
		c.HTTP.RequestsPerSecond = 5
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 5
	}

	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = degiro.DefaultConcurrency
	}
}
