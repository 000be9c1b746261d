// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"maps"
	"slices"

	"github.com/spf13/afero"
)

// WriteTree writes every path to content on fs, creating parent
// directories. Paths are written in sorted order so a failure message
// is stable.
//
//	testutil.WriteTree(t, fs, map[string]string{
//	    "/proc/stat": "cpu  1 0 1 10 0 0 0 0 0 0\n",
//	    "/sys/class/thermal/thermal_zone0/temp": "45000\n",
//	})
func WriteTree(t TB, fs afero.Fs, files map[string]string) {
	t.Helper()
	for _, path := range slices.Sorted(maps.Keys(files)) {
		if err := afero.WriteFile(fs, path, []byte(files[path]), 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
}
