// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads coreburn run profiles.
//
// A profile is loaded from a single YAML file named either by the
// COREBURN_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery: without one of the two,
// [Default] is the whole configuration and flags adjust it.
//
// The file overlays [Default]; fields it omits keep their defaults.
// Unknown keys are an error so a misspelled threshold never silently
// falls back to its default.
//
// Durations accept Go syntax ("1m30s") as well as a number with an
// optional s, m or h suffix ("90", "2.5m", "1h").
//
// ${HOME} and ${VAR:-default} are expanded in path fields after
// loading.
//
// [Profile.Validate] checks ranges and cross-field constraints. It
// does not touch the host; host checks belong to the runner.
package config
