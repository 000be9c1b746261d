// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/coreburn/lib/codec"
	"github.com/bureau-foundation/coreburn/lib/process"
	"github.com/bureau-foundation/coreburn/lib/telemetrylog"
)

// inspectedRecord is one log record with its payload decoded.
type inspectedRecord struct {
	Type    telemetrylog.RecordType `json:"type"`
	Time    time.Time               `json:"time"`
	Payload any                     `json:"payload"`
}

// inspect prints the records of a telemetry log as JSON lines. A log
// cut short by a crash prints every complete record before failing.
func inspect(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return process.Exit(exitPreRun, errors.New("usage: coreburn inspect LOG"))
	}
	reader, err := telemetrylog.OpenReader(args[0])
	if err != nil {
		return err
	}
	defer reader.Close()

	encoder := json.NewEncoder(stdout)
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		var payload any
		if err := record.Decode(&payload); err != nil {
			return err
		}
		if err := encoder.Encode(inspectedRecord{Type: record.Type, Time: record.Time, Payload: codec.Plain(payload)}); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
}
