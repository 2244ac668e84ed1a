package monitoring

import (
	"errors"
	"testing"
	"time"
)

func TestMonitorRecordPrediction(t *testing.T) {
	m := NewMonitor(nil)

	m.RecordPrediction("llama3_8b", 7, 0.9, 2*time.Millisecond, nil)
	m.RecordPrediction("llama3_8b", 7, 0.4, 4*time.Millisecond, nil)
	m.RecordPrediction("llama3_8b", 15, 0, time.Millisecond, errors.New("weights unavailable"))

	snapshot := m.Snapshot()
	if snapshot["total_predictions"].(int64) != 3 {
		t.Fatalf("expected 3 predictions, got %v", snapshot["total_predictions"])
	}
	if snapshot["total_failures"].(int64) != 1 {
		t.Fatalf("expected 1 failure, got %v", snapshot["total_failures"])
	}

	probes := snapshot["probes"].(map[string]ProbeStats)
	stats, ok := probes["llama3_8b/7"]
	if !ok {
		t.Fatalf("missing per-probe stats: %v", probes)
	}
	if stats.Count != 2 || stats.Failures != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.LastProbability != 0.4 {
		t.Fatalf("expected last probability 0.4, got %v", stats.LastProbability)
	}

	failed, ok := probes["llama3_8b/15"]
	if !ok || failed.Failures != 1 {
		t.Fatalf("failure not recorded: %+v", failed)
	}
}

func TestMonitorSnapshotIsCopy(t *testing.T) {
	m := NewMonitor(nil)
	m.RecordPrediction("llama3_8b", 7, 0.5, time.Millisecond, nil)

	probes := m.Snapshot()["probes"].(map[string]ProbeStats)
	entry := probes["llama3_8b/7"]
	entry.Count = 100
	probes["llama3_8b/7"] = entry

	fresh := m.Snapshot()["probes"].(map[string]ProbeStats)
	if fresh["llama3_8b/7"].Count != 1 {
		t.Fatal("Snapshot returned a reference into the monitor")
	}
}
