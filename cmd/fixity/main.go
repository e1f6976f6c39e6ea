// Package main provides the entry point for the fixity CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/fixity/pkg/fixity/logging"
)

// Exit codes.
const (
	exitOK            = 0
	exitFatal         = 1
	exitDiscrepancies = 2
)

// ExitError ends the process with Code without printing an error message.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	switch e.Code {
	case exitDiscrepancies:
		return "verification found discrepancies"
	default:
		return fmt.Sprintf("exit status %d", e.Code)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := ExecuteContext(ctx)
	defer func() { _ = logging.Close() }()

	return exitCode(err)
}

// exitCode maps a command error to the process exit status, printing
// fatal errors to stderr.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	logging.Get("cli").Error("command failed", "error", err)
	printError("%v", err)
	return exitFatal
}
