// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/coreburn/lib/runner"
)

func printPlan(w io.Writer, plan *runner.Plan) {
	profile := plan.Profile
	fmt.Fprintf(w, "Plan %s\n", plan.Fingerprint)
	fmt.Fprintf(w, "  processor:    %s\n", plan.Processor.Brand)
	fmt.Fprintf(w, "  workload:     %s at %d%% for %s\n", profile.Workload, profile.Utilization, profile.Duration)
	fmt.Fprintf(w, "  threads:      %d on CPUs %s\n", plan.Threads, joinInts(plan.WorkerCPUs))
	fmt.Fprintf(w, "  allowed CPUs: %s\n", joinInts(plan.AllowedCPUs))
	if plan.TemperatureSensor == "" {
		fmt.Fprintf(w, "  sensor:       none\n")
	} else {
		fmt.Fprintf(w, "  sensor:       %s (%s)\n", plan.TemperatureSensor, celsius(plan.TemperatureCelsius))
	}
	if plan.DCL != nil {
		fmt.Fprintf(w, "  DCL:          %s expects %.0f MHz +/-%.2f%%\n",
			profile.Workload, float64(plan.DCL.ExpectedKHz)/1000, plan.DCL.TolerancePercent)
	}
	if plan.PreciseBaseKHz > 0 {
		fmt.Fprintf(w, "  precise base: %d kHz\n", plan.PreciseBaseKHz)
	}
	for _, warning := range plan.Warnings {
		fmt.Fprintf(w, "  warning:      %s\n", warning)
	}
}

func printResult(w io.Writer, result *runner.Result) {
	fmt.Fprintf(w, "%s on %d threads: %s of %s, stopped by %s after %d intervals\n",
		result.Kind, result.Threads,
		result.Elapsed.Round(time.Millisecond), result.Requested,
		result.StopReason, result.Intervals)
	fmt.Fprintf(w, "final temperature %s, %d throttle steps, %d topology changes\n",
		celsius(result.FinalTemperatureCelsius), result.ThrottleSteps, result.TopologyChanges)

	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(table, "worker\tcpu\toperations\tbusy\t")
	for _, total := range result.Workers {
		fmt.Fprintf(table, "%d\t%d\t%d\t%s\t\n", total.Index, total.CPU, total.Operations, total.Busy.Round(time.Millisecond))
	}
	table.Flush()

	if result.Residency != nil && result.Residency.Samples > 0 {
		fmt.Fprintf(w, "frequency residency (%d samples, %.0f to %.0f MHz):\n",
			result.Residency.Samples, result.Residency.MinKHz/1000, result.Residency.MaxKHz/1000)
		for _, bucket := range result.Residency.Buckets {
			if bucket.Samples == 0 {
				continue
			}
			fmt.Fprintf(w, "  %5d-%-5d MHz %6.2f%%\n", bucket.LowKHz/1000, bucket.HighKHz/1000, bucket.Percent)
		}
	}
	if record := result.Validation; record != nil {
		fmt.Fprintf(w, "DCL %s (%s): measured %.0f MHz, expected %.0f MHz, deviation %.2f%% (tolerance %.2f%%): %s\n",
			record.Kind, record.Class,
			record.MeasuredKHz/1000, float64(record.ExpectedKHz)/1000,
			record.DeviationPercent, record.TolerancePercent, record.Verdict)
	}
	if result.LogError != "" {
		fmt.Fprintf(w, "telemetry log incomplete: %s\n", result.LogError)
	}
}

func celsius(value *float64) string {
	if value == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.1f C", *value)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = fmt.Sprint(value)
	}
	return strings.Join(parts, ",")
}
