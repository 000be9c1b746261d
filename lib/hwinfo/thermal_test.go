// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"math"
	"testing"

	"github.com/spf13/afero"
)

// memTree writes files into a fresh in-memory filesystem.
func memTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0o444); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	return fs
}

func TestFindTemperatureSensor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		files  map[string]string
		want   string
		wantOK bool
	}{
		{
			name: "thermal zone preferred",
			files: map[string]string{
				"/sys/class/hwmon/hwmon0/temp1_input":    "40000\n",
				"/sys/class/thermal/thermal_zone1/temp": "41000\n",
			},
			want:   "/sys/class/thermal/thermal_zone1/temp",
			wantOK: true,
		},
		{
			name: "hwmon scan",
			files: map[string]string{
				"/sys/class/hwmon/hwmon12/temp1_input": "40000\n",
				"/sys/class/hwmon/hwmon30/temp1_input": "40000\n",
			},
			want:   "/sys/class/hwmon/hwmon12/temp1_input",
			wantOK: true,
		},
		{
			name:  "slot past the scan range",
			files: map[string]string{"/sys/class/hwmon/hwmon64/temp1_input": "40000\n"},
		},
		{name: "none"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			path, ok := FindTemperatureSensor(memTree(t, test.files))
			if ok != test.wantOK || path != test.want {
				t.Errorf("FindTemperatureSensor = (%q, %v), want (%q, %v)", path, ok, test.want, test.wantOK)
			}
		})
	}
}

func TestReadTemperature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    float64
		wantOK  bool
	}{
		{"millidegrees", "54000\n", 54, true},
		{"millidegrees fractional", "61250", 61.25, true},
		{"whole degrees", "72", 72, true},
		{"exactly 1000 is degrees and implausible", "1000", 0, false},
		{"negative plausible", "-15", -15, true},
		{"below range", "-25", 0, false},
		{"above range after scaling", "151000", 0, false},
		{"upper bound", "150000", 150, true},
		{"garbage", "N/A", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/sys/class/thermal/thermal_zone0/temp"
			got, ok := ReadTemperature(memTree(t, map[string]string{path: tt.content}), path)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("temperature = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadTemperatureMissing(t *testing.T) {
	t.Parallel()

	if _, ok := ReadTemperature(afero.NewMemMapFs(), "/sys/class/thermal/thermal_zone0/temp"); ok {
		t.Error("missing sensor file read as a temperature")
	}
	if _, ok := ReadTemperature(afero.NewMemMapFs(), ""); ok {
		t.Error("empty sensor path read as a temperature")
	}
}

func TestReadCoreFrequency(t *testing.T) {
	t.Parallel()

	fs := memTree(t, map[string]string{
		CPUFreqPath(3, ScalingCurFreqFile): "2801000\n",
		CPUFreqPath(4, ScalingCurFreqFile): "0\n",
		CPUFreqPath(3, BaseFrequencyFile):  "2100000\n",
	})

	if kHz, ok := ReadCoreFrequency(fs, 3); !ok || kHz != 2801000 {
		t.Errorf("cpu 3 = (%d, %v), want (2801000, true)", kHz, ok)
	}
	if _, ok := ReadCoreFrequency(fs, 4); ok {
		t.Error("zero frequency is not a reading")
	}
	if _, ok := ReadCoreFrequency(fs, 5); ok {
		t.Error("missing cpu read as a frequency")
	}
	if base, ok := ReadBaseFrequency(fs, 3); !ok || base != 2100000 {
		t.Errorf("base = (%d, %v), want (2100000, true)", base, ok)
	}

	want := "/sys/devices/system/cpu/cpu3/cpufreq/scaling_max_freq"
	if got := CPUFreqPath(3, ScalingMaxFreqFile); got != want {
		t.Errorf("CPUFreqPath = %q, want %q", got, want)
	}
}
