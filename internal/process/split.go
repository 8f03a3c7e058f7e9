package process

import (
	"errors"
	"fmt"
	"os"

	"mvdan.cc/sh/v3/shell"
)

// ErrEmptyCommand is returned for a blank command line.
var ErrEmptyCommand = errors.New("empty command line")

// Split parses a shell-style command line such as `cargo build --release`
// into an executable and its arguments. Quotes are honoured and $VARS expand
// from the environment.
func Split(line string) (string, []string, error) {
	fields, err := shell.Fields(line, os.Getenv)
	if err != nil {
		return "", nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(fields) == 0 {
		return "", nil, ErrEmptyCommand
	}
	return fields[0], fields[1:], nil
}
