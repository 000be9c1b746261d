// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package affinity

import (
	"errors"
	"slices"
)

// ErrNoCPUs is returned when the allowed set is empty.
var ErrNoCPUs = errors.New("affinity: no allowed CPUs")

// Topology is an immutable, ascending list of allowed logical CPU ids.
type Topology struct {
	cpus []int
}

// NewTopology sorts and deduplicates cpus.
func NewTopology(cpus []int) Topology {
	sorted := slices.Clone(cpus)
	slices.Sort(sorted)
	return Topology{cpus: slices.Compact(sorted)}
}

// Count is the number of allowed CPUs.
func (t Topology) Count() int { return len(t.cpus) }

// CPUs returns a copy of the CPU ids.
func (t Topology) CPUs() []int { return slices.Clone(t.cpus) }

// At returns the CPU id in slot. The slot must be in range.
func (t Topology) At(slot int) int { return t.cpus[slot] }

// Equal reports whether both topologies list the same CPUs.
func (t Topology) Equal(other Topology) bool { return slices.Equal(t.cpus, other.cpus) }

// Source reports the CPUs the process may currently run on.
type Source interface {
	Allowed() (Topology, error)
}

// StaticSource is a Source returning a fixed value, or Err if set.
type StaticSource struct {
	Topology Topology
	Err      error
}

// Allowed implements Source.
func (s StaticSource) Allowed() (Topology, error) { return s.Topology, s.Err }
