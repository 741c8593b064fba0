package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
)

// Environment variables passing the global flags to extensions.
const (
	EnvConfig  = "DEGIRO_CONFIG"
	EnvVerbose = "DEGIRO_VERBOSE"
)

// ExtensionPrefix prefixes the name of the binaries run as extensions.
const ExtensionPrefix = "degiro-"

// RunExtension runs the degiro-<subcommand> binary found in PATH, if any.
// It reports whether one was found, and its exit code.
func RunExtension(subcommand string, args []string) (bool, int) {
	name := ExtensionPrefix + subcommand

	lp, err := exec.LookPath(name)
	if err != nil {
		log.Printf("[cmd] extension %q not found in PATH: %v", name, err)
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		EnvConfig+"="+*configPath,
		EnvVerbose+"="+strconv.FormatBool(*Verbose),
	)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return true, exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing extension %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}
