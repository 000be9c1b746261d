// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetrylog

import (
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/coreburn/lib/codec"
)

// RecordType tags the payload of a record.
type RecordType string

const (
	RecordHeader     RecordType = "header"
	RecordSnapshot   RecordType = "snapshot"
	RecordValidation RecordType = "validation"
	RecordResult     RecordType = "result"
)

// Record is one element of the log.
type Record struct {
	Type    RecordType       `json:"type"`
	Time    time.Time        `json:"time"`
	Payload codec.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (r Record) Decode(v any) error {
	if err := codec.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decoding %s record payload: %w", r.Type, err)
	}
	return nil
}

// Compression selects the stream compressor.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

var compressionNames = [...]string{
	CompressionNone: "none",
	CompressionZstd: "zstd",
	CompressionLZ4:  "lz4",
}

func (c Compression) String() string {
	if c < 0 || int(c) >= len(compressionNames) {
		return fmt.Sprintf("Compression(%d)", int(c))
	}
	return compressionNames[c]
}

// ParseCompression accepts "none" (or ""), "zstd" and "lz4".
func ParseCompression(name string) (Compression, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return CompressionNone, nil
	}
	for compression, candidate := range compressionNames {
		if candidate == normalized {
			return Compression(compression), nil
		}
	}
	return 0, fmt.Errorf("unknown log compression %q (want none, zstd or lz4)", name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
