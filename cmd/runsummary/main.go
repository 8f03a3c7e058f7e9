// Command runsummary aggregates the run telemetry written by workbench and
// wbctl into a JSON report.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bekirdag/workbench/internal/settings"
	"github.com/bekirdag/workbench/internal/telemetry"
)

type kindSummary struct {
	Workspace        string    `json:"workspace"`
	Kind             string    `json:"kind"`
	Runs             int       `json:"runs"`
	Succeeded        int       `json:"succeeded"`
	Failed           int       `json:"failed"`
	Cancelled        int       `json:"cancelled"`
	DurationMsMedian float64   `json:"duration_ms_median"`
	DurationMsMax    int64     `json:"duration_ms_max"`
	LastRun          time.Time `json:"last_run"`
	LastError        string    `json:"last_error,omitempty"`
	Anomalies        []string  `json:"anomalies,omitempty"`
}

type runReport struct {
	Source   string        `json:"source"`
	Events   int           `json:"events"`
	Skipped  int           `json:"skipped_lines"`
	Sessions int           `json:"sessions"`
	Kinds    []kindSummary `json:"kinds"`
}

func main() {
	var (
		inputPath  string
		outputPath string
		workspace  string
		since      time.Duration
	)
	flag.StringVar(&inputPath, "in", filepath.Join(settings.Dir(), telemetry.FileName), "telemetry JSONL path")
	flag.StringVar(&outputPath, "out", "", "output JSON path (optional, defaults to stdout)")
	flag.StringVar(&workspace, "workspace", "", "only include runs of this workspace")
	flag.DurationVar(&since, "since", 0, "only include events newer than this, e.g. 24h")
	flag.Parse()

	events, skipped, err := telemetry.Read(inputPath)
	if err != nil {
		exit(fmt.Errorf("read telemetry: %w", err))
	}
	var cutoff time.Time
	if since > 0 {
		cutoff = time.Now().Add(-since)
	}
	if workspace != "" {
		if abs, err := filepath.Abs(workspace); err == nil {
			workspace = abs
		}
	}
	report := buildReport(inputPath, filterEvents(events, workspace, cutoff), skipped)

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exit(fmt.Errorf("encode report: %w", err))
	}
	if outputPath == "" {
		fmt.Println(string(encoded))
		return
	}
	if err := os.WriteFile(outputPath, append(encoded, '\n'), 0o644); err != nil {
		exit(fmt.Errorf("write output: %w", err))
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "runsummary: %v\n", err)
	os.Exit(1)
}

func filterEvents(events []telemetry.Event, workspace string, cutoff time.Time) []telemetry.Event {
	out := events[:0:0]
	for _, ev := range events {
		if workspace != "" && ev.Workspace != workspace {
			continue
		}
		if !cutoff.IsZero() && ev.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func buildReport(source string, events []telemetry.Event, skipped int) runReport {
	report := runReport{Source: source, Events: len(events), Skipped: skipped}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	sessions := map[string]bool{}
	type key struct{ workspace, kind string }
	durations := map[key][]int64{}
	summaries := map[key]*kindSummary{}
	for _, ev := range events {
		sessions[ev.SessionID] = true
		switch ev.Status {
		case "succeeded", "failed", "cancelled":
		default:
			continue
		}
		k := key{ev.Workspace, ev.Kind}
		sum := summaries[k]
		if sum == nil {
			sum = &kindSummary{Workspace: ev.Workspace, Kind: ev.Kind}
			summaries[k] = sum
		}
		sum.Runs++
		switch ev.Status {
		case "succeeded":
			sum.Succeeded++
		case "failed":
			sum.Failed++
			sum.LastError = ev.Error
		case "cancelled":
			sum.Cancelled++
		}
		if ev.Timestamp.After(sum.LastRun) {
			sum.LastRun = ev.Timestamp
		}
		if ev.DurationMS > 0 {
			durations[k] = append(durations[k], ev.DurationMS)
			if ev.DurationMS > sum.DurationMsMax {
				sum.DurationMsMax = ev.DurationMS
			}
		}
	}
	report.Sessions = len(sessions)

	for k, sum := range summaries {
		sum.DurationMsMedian = computeMedian(durations[k])
		sum.Anomalies = detectAnomalies(*sum, durations[k])
		report.Kinds = append(report.Kinds, *sum)
	}
	sort.Slice(report.Kinds, func(i, j int) bool {
		if report.Kinds[i].Workspace != report.Kinds[j].Workspace {
			return report.Kinds[i].Workspace < report.Kinds[j].Workspace
		}
		return report.Kinds[i].Kind < report.Kinds[j].Kind
	})
	return report
}

func computeMedian(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

func detectAnomalies(sum kindSummary, durations []int64) []string {
	var out []string
	if sum.Runs >= 4 && sum.Failed*2 > sum.Runs {
		out = append(out, fmt.Sprintf("more than half of %d runs failed", sum.Runs))
	}
	median := computeMedian(durations)
	for _, v := range durations {
		if median > 0 && float64(v) > 5*median && v > 60000 {
			out = append(out, fmt.Sprintf("duration spike %dms", v))
			break
		}
	}
	return out
}
