// Package main provides the idmap command: it builds competition id mappings
// from the admission catalogue, audits them against the program registry and
// publishes the resulting artifact.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	apperrors "github.com/garyellow/admission-lists/internal/errors"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.msg != "" {
				_, _ = fmt.Fprintln(os.Stderr, exit.msg)
			}
			os.Exit(exit.code)
		}
		_, _ = fmt.Fprint(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage renders a failed command for the terminal: the operator-facing
// message first, then the full chain when it adds detail.
func errorMessage(err error) string {
	msg := apperrors.GetUserMessage(err)
	if full := err.Error(); full != msg {
		return fmt.Sprintf("Error: %s\n  cause: %s\n", msg, full)
	}
	return fmt.Sprintf("Error: %s\n", msg)
}

// exitError ends the process with code without being reported as a failure.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit status %d", e.code)
}
