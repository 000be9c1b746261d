// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds coreburn's CBOR encoding configuration.
//
// Two formats meet at this boundary:
//
//   - JSON for anything a person or a script reads directly: the
//     --json run result and the inspect subcommand's output.
//   - CBOR for the telemetry log, where one record per control interval
//     adds up over a 24 hour run.
//
// Every package encodes through the modes defined here. The encoder
// uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items. Timestamps
// encode as RFC 3339 text with nanoseconds so interval boundaries
// survive a round trip.
//
// Buffers:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Streams (the telemetry log is a CBOR sequence, RFC 8742):
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// # Struct tags
//
// Types written to the telemetry log are also printed as JSON, so they
// carry `json` tags only. fxamacker/cbor v2 falls back to `json` tags
// when `cbor` tags are absent, and one tag then controls field naming
// and omitempty for both formats. Never put both tags on one field.
package codec
