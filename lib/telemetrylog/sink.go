// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetrylog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/coreburn/lib/codec"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("telemetrylog: sink closed")

// Options configures Create.
type Options struct {
	// Append opens an existing log for appending instead of
	// truncating it. A non-empty log keeps the compression it was
	// started with; Compression only applies to a new one.
	Append      bool
	Compression Compression
}

// flushWriteCloser is the compressor interface shared by zstd.Encoder
// and lz4.Writer.
type flushWriteCloser interface {
	io.WriteCloser
	Flush() error
}

// Sink writes records to one log.
type Sink struct {
	mu          sync.Mutex
	file        io.WriteCloser
	compression Compression
	compressor  flushWriteCloser
	encoder    *codec.Encoder
	err        error
	closed     bool
	records    int
}

// Create opens path and returns a sink writing to it.
func Create(path string, options Options) (*Sink, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if options.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	compression := options.Compression
	if options.Append {
		existing, found, err := sniffFile(path)
		if err != nil {
			return nil, err
		}
		if found {
			compression = existing
		}
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry log: %w", err)
	}
	sink, err := NewSink(file, compression)
	if err != nil {
		file.Close()
		return nil, err
	}
	return sink, nil
}

// NewSink returns a sink writing to w. Close closes w.
func NewSink(w io.WriteCloser, compression Compression) (*Sink, error) {
	sink := &Sink{file: w, compression: compression}
	switch compression {
	case CompressionNone:
		sink.encoder = codec.NewEncoder(w)
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		sink.compressor = encoder
	case CompressionLZ4:
		sink.compressor = lz4.NewWriter(w)
	default:
		return nil, fmt.Errorf("telemetrylog: unknown compression %d", int(compression))
	}
	if sink.compressor != nil {
		sink.encoder = codec.NewEncoder(sink.compressor)
	}
	return sink, nil
}

// Write encodes payload as one record and flushes it to the file.
// After the first failure every call returns that failure.
func (s *Sink) Write(recordType RecordType, at time.Time, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.err != nil {
		return s.err
	}

	encoded, err := codec.Marshal(payload)
	if err != nil {
		// A payload that cannot be encoded is a programming error
		// in the caller, not a broken sink.
		return fmt.Errorf("encoding %s payload: %w", recordType, err)
	}
	record := Record{Type: recordType, Time: at, Payload: encoded}
	if err := s.encoder.Encode(record); err != nil {
		s.err = fmt.Errorf("writing %s record: %w", recordType, err)
		return s.err
	}
	if s.compressor != nil {
		if err := s.compressor.Flush(); err != nil {
			s.err = fmt.Errorf("flushing %s record: %w", recordType, err)
			return s.err
		}
	}
	s.records++
	return nil
}

// WriteHeader writes the run description that starts a fresh log.
func (s *Sink) WriteHeader(at time.Time, header any) error {
	return s.Write(RecordHeader, at, header)
}

// WriteSnapshot writes one control interval.
func (s *Sink) WriteSnapshot(at time.Time, snapshot any) error {
	return s.Write(RecordSnapshot, at, snapshot)
}

// WriteValidation writes a streamed validation verdict.
func (s *Sink) WriteValidation(at time.Time, record any) error {
	return s.Write(RecordValidation, at, record)
}

// WriteResult writes the final run result.
func (s *Sink) WriteResult(at time.Time, result any) error {
	return s.Write(RecordResult, at, result)
}

// Compression returns the compression records are written with.
func (s *Sink) Compression() Compression { return s.compression }

// Err returns the failure that disabled the sink, or nil.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Records returns the number of records written.
func (s *Sink) Records() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Close finishes the compressed stream and closes the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var compressorErr error
	if s.compressor != nil {
		compressorErr = s.compressor.Close()
	}
	fileErr := s.file.Close()
	if compressorErr != nil {
		return fmt.Errorf("closing compressor: %w", compressorErr)
	}
	if fileErr != nil {
		return fmt.Errorf("closing telemetry log: %w", fileErr)
	}
	return nil
}

// sniffFile reports the compression of the log at path. found is false
// when the file is missing or empty.
func sniffFile(path string) (Compression, bool, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return CompressionNone, false, nil
	}
	if err != nil {
		return CompressionNone, false, fmt.Errorf("opening telemetry log: %w", err)
	}
	defer file.Close()
	magic := make([]byte, len(zstdMagic))
	n, err := io.ReadFull(file, magic)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return CompressionNone, false, fmt.Errorf("reading telemetry log: %w", err)
	}
	if n == 0 {
		return CompressionNone, false, nil
	}
	return detectCompression(magic[:n]), true, nil
}
