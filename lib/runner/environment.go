// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"log/slog"

	"github.com/spf13/afero"

	"github.com/bureau-foundation/coreburn/lib/affinity"
	"github.com/bureau-foundation/coreburn/lib/clock"
	"github.com/bureau-foundation/coreburn/lib/hwinfo"
	"github.com/bureau-foundation/coreburn/lib/workload"
)

// Environment is everything a run touches on the host. [Host] returns
// the real one; tests substitute in-memory trees, fixed capabilities
// and scripted registers.
type Environment struct {
	// FS holds /proc and /sys. Writes go through it too.
	FS afero.Fs

	Clock        clock.Clock
	Capabilities hwinfo.CapabilityDetector
	Topology     affinity.Source
	Pinner       affinity.Pinner
	MSR          hwinfo.MSRReader
	Processor    func() hwinfo.ProcessorInfo
	Logger       *slog.Logger

	// NewUnit replaces the kernel of each worker when set.
	NewUnit func(index int) workload.Unit
}

// Host returns the environment of the running machine.
func Host(logger *slog.Logger) Environment {
	return Environment{
		FS:           afero.NewOsFs(),
		Clock:        clock.Real(),
		Capabilities: hwinfo.HostCapabilities(),
		Topology:     affinity.SchedSource{},
		Pinner:       affinity.SchedPinner{},
		MSR:          hwinfo.NewDeviceMSR(),
		Processor:    hwinfo.DetectProcessor,
		Logger:       logger,
	}
}

// withDefaults fills the fields a caller may leave unset.
func (e Environment) withDefaults() Environment {
	if e.FS == nil {
		e.FS = afero.NewOsFs()
	}
	if e.Clock == nil {
		e.Clock = clock.Real()
	}
	if e.Capabilities == nil {
		e.Capabilities = hwinfo.HostCapabilities()
	}
	if e.Topology == nil {
		e.Topology = affinity.SchedSource{}
	}
	if e.Pinner == nil {
		e.Pinner = affinity.SchedPinner{}
	}
	if e.MSR == nil {
		e.MSR = hwinfo.NewDeviceMSR()
	}
	if e.Processor == nil {
		e.Processor = hwinfo.DetectProcessor
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}
	return e
}
