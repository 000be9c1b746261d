// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwinfo provides the capability and telemetry primitives the
// workload engine, frequency controller, and validator are built on.
//
// # Capabilities
//
// [HostCapabilities] reports which vector tiers (SSE, AVX, AVX2+FMA,
// AVX-512F) may be executed. A tier counts as present only when the CPU
// advertises it and the OS has enabled the matching extended register
// state in XCR0. [StaticCapabilities] is the fixed-value stand-in for
// tests. [DetectProcessor] reports processor identity via cpuid.
//
// # OS counters
//
//   - Per-core and aggregate tick counters from /proc/stat
//     ([ReadProcStat], [UtilizationPercent], [SampleUtilization])
//   - Thermal sensors from /sys/class/thermal and /sys/class/hwmon
//     ([FindTemperatureSensor], [ReadTemperature])
//   - Scaled current frequency from cpufreq ([ReadCoreFrequency])
//
// Every reader takes an afero.Fs so tests can point it at an in-memory
// tree laid out like /proc and /sys.
//
// # Model-specific registers
//
// [MSRReader] isolates register access. [DeviceMSR] reads
// /dev/cpu/N/msr and needs root; [ScriptedMSR] replays fixed values.
// On top of it:
//
//   - [PreciseFrequency] computes effective frequency from the
//     APERF/MPERF ratio scaled by the base frequency.
//   - [PowerMeter] converts RAPL energy status deltas into watts per
//     domain (package, core, DRAM).
//
// Counter deltas go through [CounterDelta], which takes the register
// width so a 32-bit energy counter and a 64-bit clock counter both wrap
// correctly.
package hwinfo
