// Package cmd implements the degiro command line.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/subcommands"

	"github.com/freelectron/degiro/config"
	"github.com/freelectron/degiro/session"
)

// Environment variables holding the portal credentials.
const (
	EnvUsername = "DEGIRO_USERNAME"
	EnvPassword = "DEGIRO_PASSWORD"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configPath = flag.String("config", config.DefaultPath(), "Path to the YAML configuration file")

// Verbose enables the log output.
var Verbose = flag.Bool("v", false, "Log portal requests and pipeline steps to stderr")

// Commands returns every subcommand of the degiro command.
func Commands() []subcommands.Command {
	return []subcommands.Command{
		&positionsCmd{},
		&transactionsCmd{},
		&historyCmd{},
		&schemaCmd{},
	}
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands() {
		c.Register(cmd, "")
	}
}

// Known reports whether name is a built-in subcommand.
func Known(name string) bool {
	for _, cmd := range Commands() {
		if cmd.Name() == name {
			return true
		}
	}
	return name == "help" || name == "flags" || name == "commands"
}

// SetupLogging silences the standard logger unless -v is set.
func SetupLogging() {
	log.SetFlags(log.Ltime)
	if !*Verbose {
		log.SetOutput(io.Discard)
	}
}

// loadConfig reads the configuration file. A non-empty sessionID overrides
// the configured one.
func loadConfig(sessionID string) (*config.Config, error) {
	cfg, err := config.LoadAndValidate(*configPath, func(c *config.Config) {
		if sessionID != "" {
			c.Account.SessionID = sessionID
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", *configPath, err)
	}
	return cfg, nil
}

// openSession resumes the configured session, or logs in through the
// browser with the credentials of the environment.
func openSession(ctx context.Context, cfg *config.Config) (*session.Session, error) {
	if cfg.Account.SessionID != "" {
		log.Printf("[cmd] reusing session of account %s", cfg.Account.ID)
		return session.Resume(cfg.Account.ID, cfg.Account.SessionID, cfg.HTTPConfig())
	}
	username, password := os.Getenv(EnvUsername), os.Getenv(EnvPassword)
	if username == "" || password == "" {
		return nil, errors.New(EnvUsername + " and " + EnvPassword + " must be set to log in")
	}
	bridge, err := session.Open(ctx, cfg.Account.ID, cfg.DriverConfig(), cfg.HTTPConfig())
	if err != nil {
		return nil, err
	}
	// the browser is only needed for the login itself.
	defer bridge.Close()
	return bridge.Login(ctx, username, password)
}
