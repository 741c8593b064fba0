// Package config loads the YAML configuration of the degiro command.
//
//	account:
//	  id: "1234567"
//	driver:
//	  browser: firefox
//	  path: /usr/local/bin/geckodriver
//	  headless: true
//	http:
//	  timeout: 30s
//	  headers:
//	    Accept-Language: nl-NL
//	store:
//	  path: ${HOME}/.local/share/degiro/degiro.db
//
// ${VAR} references are expanded from the environment before parsing.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/session"
)

// Config is the root of the configuration file.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Locale   LocaleConfig   `yaml:"locale"`
	Driver   DriverConfig   `yaml:"driver"`
	HTTP     HTTPConfig     `yaml:"http"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
}

type AccountConfig struct {
	ID        string `yaml:"id"`
	SessionID string `yaml:"session_id"` // reuse a session instead of logging in
}

type LocaleConfig struct {
	Country    string `yaml:"country"`
	Language   string `yaml:"language"`
	Timezone   string `yaml:"timezone"`
	DateFormat string `yaml:"date_format"` // Go layout
	Encoding   string `yaml:"encoding"`
	Decimal    string `yaml:"decimal"`
}

type DriverConfig struct {
	Browser  session.Browser `yaml:"browser"`
	Path     string          `yaml:"path"`
	Port     int             `yaml:"port"`
	Headless bool            `yaml:"headless"`
}

type HTTPConfig struct {
	Domain            string            `yaml:"domain"`
	Headers           map[string]string `yaml:"headers"`
	Timeout           time.Duration     `yaml:"timeout"`
	RequestsPerSecond float64           `yaml:"requests_per_second"`
	Burst             int               `yaml:"burst"`
}

type PipelineConfig struct {
	Concurrency    int  `yaml:"concurrency"`
	RequireAllDays bool `yaml:"require_all_days"`
}

type StoreConfig struct {
	Path string `yaml:"path"` // empty disables the store
}

// DefaultPath returns the configuration file location of the current user.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "degiro.yaml"
	}
	return filepath.Join(dir, "degiro", "config.yaml")
}

// SessionLocale returns the locale of the account.
func (c *Config) SessionLocale() degiro.Locale {
	l := degiro.Locale{
		Country:    c.Locale.Country,
		Language:   c.Locale.Language,
		Timezone:   c.Locale.Timezone,
		DateFormat: c.Locale.DateFormat,
		Encoding:   c.Locale.Encoding,
	}
	if r := []rune(c.Locale.Decimal); len(r) == 1 {
		l.Decimal = r[0]
	}
	return l
}

// DriverConfig returns the automation driver settings.
func (c *Config) DriverConfig() session.DriverConfig {
	return session.DriverConfig{
		Browser:  c.Driver.Browser,
		Path:     c.Driver.Path,
		Port:     c.Driver.Port,
		Headless: c.Driver.Headless,
	}
}

// HTTPConfig returns the portal HTTP client settings.
func (c *Config) HTTPConfig() session.HTTPConfig {
	return session.HTTPConfig{
		Domain:            c.HTTP.Domain,
		Headers:           c.HTTP.Headers,
		Timeout:           c.HTTP.Timeout,
		RequestsPerSecond: c.HTTP.RequestsPerSecond,
		Burst:             c.HTTP.Burst,
	}
}

// PipelineOptions returns the options every pipeline is built with.
func (c *Config) PipelineOptions() []degiro.Option {
	opts := []degiro.Option{
		degiro.WithLocale(c.SessionLocale()),
		degiro.WithConcurrency(c.Pipeline.Concurrency),
	}
	if c.Pipeline.RequireAllDays {
		opts = append(opts, degiro.RequireAllDays())
	}
	return opts
}
