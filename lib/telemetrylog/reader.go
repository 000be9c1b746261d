// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetrylog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/coreburn/lib/codec"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Reader decodes records from a log.
type Reader struct {
	decoder     *codec.Decoder
	compression Compression
	closers     []func() error
}

// OpenReader opens the log at path.
func OpenReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry log: %w", err)
	}
	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closers = append(reader.closers, file.Close)
	return reader, nil
}

// NewReader detects the stream compression and returns a reader over
// r. Close does not close r.
func NewReader(r io.Reader) (*Reader, error) {
	buffered := bufio.NewReader(r)
	magic, err := buffered.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading telemetry log: %w", err)
	}

	reader := &Reader{compression: detectCompression(magic)}
	var source io.Reader = buffered
	switch reader.compression {
	case CompressionZstd:
		decoder, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		reader.closers = append(reader.closers, func() error { decoder.Close(); return nil })
		source = decoder
	case CompressionLZ4:
		source = lz4.NewReader(buffered)
	}
	reader.decoder = codec.NewDecoder(source)
	return reader, nil
}

// detectCompression maps the first bytes of a log to its compression.
// Both compressors start every frame with a magic number; a log of
// plain records never does.
func detectCompression(magic []byte) Compression {
	switch {
	case bytes.Equal(magic, zstdMagic):
		return CompressionZstd
	case bytes.Equal(magic, lz4Magic):
		return CompressionLZ4
	}
	return CompressionNone
}

// Compression returns the detected compression.
func (r *Reader) Compression() Compression { return r.compression }

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	var record Record
	if err := r.decoder.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("decoding telemetry record: %w", err)
	}
	return record, nil
}

// All reads every remaining record.
func (r *Reader) All() ([]Record, error) {
	var records []Record
	for {
		record, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}

// Close releases the decompressor and, for OpenReader, the file.
func (r *Reader) Close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}
