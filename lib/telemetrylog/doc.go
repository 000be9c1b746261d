// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetrylog writes and reads the per-run telemetry log.
//
// The log is a CBOR sequence (RFC 8742) of [Record] values, each
// carrying a type, a timestamp and a deferred payload. A fresh log
// starts with a header record describing the planned run, followed by
// one snapshot record per control interval and a final result record.
// Appending to an existing log skips the header.
//
// The stream may be compressed with zstd or lz4. Each record is
// flushed through the compressor as it is written, so a log cut short
// by a crash still decodes up to the last complete record. [NewReader]
// detects the compression from the frame magic.
//
// A [Sink] disables itself after its first write failure: later writes
// return the same error without touching the file, and [Sink.Err]
// reports it. The caller logs once and carries on with the workload.
package telemetrylog
