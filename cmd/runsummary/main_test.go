package main

import (
	"testing"
	"time"

	"github.com/bekirdag/workbench/internal/telemetry"
)

func TestBuildReportAggregatesTerminalEvents(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []telemetry.Event{
		{SessionID: "a", Timestamp: base, Workspace: "/w/demo", Kind: "build", Status: "running"},
		{SessionID: "a", Timestamp: base.Add(time.Second), Workspace: "/w/demo", Kind: "build", Status: "succeeded", DurationMS: 1000},
		{SessionID: "b", Timestamp: base.Add(time.Minute), Workspace: "/w/demo", Kind: "build", Status: "failed", DurationMS: 3000, Error: "process exited with code 101"},
		{SessionID: "b", Timestamp: base.Add(2 * time.Minute), Workspace: "/w/demo", Kind: "debug", Status: "cancelled"},
	}
	report := buildReport("runs.jsonl", events, 1)
	if report.Sessions != 2 || report.Skipped != 1 || len(report.Kinds) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	build := report.Kinds[0]
	if build.Kind != "build" || build.Runs != 2 || build.Succeeded != 1 || build.Failed != 1 {
		t.Fatalf("unexpected build summary %+v", build)
	}
	if build.DurationMsMedian != 2000 || build.DurationMsMax != 3000 || build.LastError == "" {
		t.Fatalf("unexpected build timings %+v", build)
	}
	if report.Kinds[1].Cancelled != 1 {
		t.Fatalf("unexpected debug summary %+v", report.Kinds[1])
	}
}

func TestFilterEvents(t *testing.T) {
	now := time.Now()
	events := []telemetry.Event{
		{Workspace: "/w/a", Timestamp: now},
		{Workspace: "/w/b", Timestamp: now},
		{Workspace: "/w/a", Timestamp: now.Add(-48 * time.Hour)},
	}
	got := filterEvents(events, "/w/a", now.Add(-time.Hour))
	if len(got) != 1 || got[0].Workspace != "/w/a" {
		t.Fatalf("unexpected filter result %+v", got)
	}
	if len(events) != 3 {
		t.Fatalf("input slice must not be modified")
	}
}

func TestDetectAnomaliesFlagsFailureRate(t *testing.T) {
	sum := kindSummary{Runs: 4, Failed: 3}
	if got := detectAnomalies(sum, nil); len(got) != 1 {
		t.Fatalf("expected a failure-rate anomaly, got %v", got)
	}
}
