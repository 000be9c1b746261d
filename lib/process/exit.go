// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitError carries the exit status for an error returned from a
// binary's run function. A nil Err exits silently with Code.
type ExitError struct {
	Code int
	Err  error
}

// Exit wraps err with an exit status.
func Exit(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the status the process should exit with.
func (e *ExitError) ExitCode() int { return e.Code }

// Code returns the exit status for err: 0 for nil, the code of the
// outermost ExitError in the chain, 1 otherwise.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	return 1
}

// Report writes "error: err" to w unless err is nil or an ExitError
// without a cause, and returns the exit status for err.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var exitError *ExitError
	if !errors.As(err, &exitError) || exitError.Err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return Code(err)
}

// Fatal reports err to stderr and exits with its status. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}
