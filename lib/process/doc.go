// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. These functions
// centralize the raw I/O that happens before the structured logger
// exists or after it is no longer useful:
//
//   - Fatal error reporting to stderr from main().
//   - Mapping an error to the process exit status.
//
// Errors that need a specific exit status wrap themselves in an
// [ExitError]; every other error exits with status 1.
package process
