// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/coreburn/lib/config"
	"github.com/bureau-foundation/coreburn/lib/process"
	"github.com/bureau-foundation/coreburn/lib/telemetrylog"
	"github.com/bureau-foundation/coreburn/lib/workload"
)

func TestOverlayOnlyChangedFlags(t *testing.T) {
	profile, err := config.Parse([]byte("utilization: 50\nworkload: SSE\nthrottle:\n  enabled: true\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	flags := newFlags()
	if err := flags.set.Parse([]string{"--threads", "4", "--type", "avx2", "-d", "90", "--log-compression", "lz4"}); err != nil {
		t.Fatalf("flag Parse: %v", err)
	}
	if err := flags.overlay(profile); err != nil {
		t.Fatalf("overlay: %v", err)
	}

	if profile.Utilization != 50 {
		t.Errorf("Utilization = %d, want 50 from the file", profile.Utilization)
	}
	if !profile.Throttle.Enabled {
		t.Error("Throttle.Enabled reset by an unset flag")
	}
	if profile.Threads != 4 {
		t.Errorf("Threads = %d, want 4", profile.Threads)
	}
	if profile.Workload != workload.KindAVX2 {
		t.Errorf("Workload = %v, want AVX2", profile.Workload)
	}
	if profile.Duration.Std() != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", profile.Duration)
	}
	if profile.Log.Compression != telemetrylog.CompressionLZ4 {
		t.Errorf("Compression = %v, want lz4", profile.Log.Compression)
	}
}

func TestOverlayBaseFrequencyEnablesPrecise(t *testing.T) {
	profile := config.Default()
	flags := newFlags()
	if err := flags.set.Parse([]string{"--base-freq", "2400000"}); err != nil {
		t.Fatalf("flag Parse: %v", err)
	}
	if err := flags.overlay(profile); err != nil {
		t.Fatalf("overlay: %v", err)
	}
	if !profile.PreciseFrequency.Enabled || profile.PreciseFrequency.BaseKHz != 2_400_000 {
		t.Errorf("PreciseFrequency = %+v, want enabled at 2400000", profile.PreciseFrequency)
	}
}

func TestOverlayRejectsBadValues(t *testing.T) {
	for _, args := range [][]string{
		{"--type", "avx3"},
		{"--ratio", "1:x:1"},
		{"--log-compression", "gzip"},
	} {
		flags := newFlags()
		if err := flags.set.Parse(args); err != nil {
			t.Fatalf("%v: flag Parse: %v", args, err)
		}
		if err := flags.overlay(config.Default()); err == nil {
			t.Errorf("%v: overlay succeeded", args)
		}
	}
}

func TestRunExitCodes(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, 0},
		{"unknown flag", []string{"--bogus"}, 2},
		{"bad duration", []string{"--duration", "soon"}, 2},
		{"stray argument", []string{"--duration", "1s", "extra"}, 2},
		{"invalid profile", []string{"--duration", "1s", "--util", "5"}, 2},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, 2},
		{"inspect without path", []string{"inspect"}, 2},
		{"restore without path", []string{"restore"}, 2},
		{"restore with nothing recorded", []string{"restore", filepath.Join(t.TempDir(), "absent.json")}, 0},
	}
	for _, test := range tests {
		var stdout, stderr bytes.Buffer
		err := run(test.args, &stdout, &stderr)
		if got := process.Code(err); got != test.want {
			t.Errorf("%s: exit %d (%v), want %d", test.name, got, err, test.want)
		}
	}
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"--version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run --version: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "coreburn ") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestInspectPrintsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.cbor.zst")
	sink, err := telemetrylog.Create(path, telemetrylog.Options{Compression: telemetrylog.CompressionZstd})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := sink.WriteHeader(at, map[string]string{"fingerprint": "abc"}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	snapshot := struct {
		Sequence int            `json:"sequence"`
		MaxKHz   map[int]uint64 `json:"max_khz"`
	}{Sequence: 0, MaxKHz: map[int]uint64{1: 2_700_000}}
	if err := sink.WriteSnapshot(at.Add(time.Second), snapshot); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var stdout bytes.Buffer
	if err := inspect([]string{path}, &stdout); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	var lines []map[string]any
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["type"] != "header" || lines[1]["type"] != "snapshot" {
		t.Errorf("types = %v, %v", lines[0]["type"], lines[1]["type"])
	}
	payload := lines[1]["payload"].(map[string]any)
	maxKHz := payload["max_khz"].(map[string]any)
	if maxKHz["1"] != 2_700_000.0 {
		t.Errorf("max_khz = %v", maxKHz)
	}
}

func TestInspectMissingFile(t *testing.T) {
	var stdout bytes.Buffer
	if err := inspect([]string{filepath.Join(t.TempDir(), "absent")}, &stdout); err == nil {
		t.Fatal("inspect of a missing file succeeded")
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", stdout.String())
	}
}
