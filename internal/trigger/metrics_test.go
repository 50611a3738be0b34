package trigger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"cronjob-trigger/pkg/logging"
)

func TestMetrics_NewInstance(t *testing.T) {
	metrics := NewMetrics()
	if metrics == nil {
		t.Fatal("expected non-nil metrics instance")
	}
	if s := metrics.Summary(); s != (MetricsSummary{}) {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestMetrics_Counters(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordEvent()
	metrics.RecordEvent()
	metrics.RecordQualified()
	metrics.RecordCacheSkip()
	metrics.RecordPatternMiss()
	metrics.RecordFiring()
	metrics.RecordDeferred()

	summary := metrics.Summary()
	if summary.EventsObserved != 2 {
		t.Errorf("expected EventsObserved=2, got %d", summary.EventsObserved)
	}
	if summary.ChangesQualified != 1 || summary.CacheSkips != 1 || summary.PatternMisses != 1 {
		t.Errorf("unexpected change counters: %+v", summary)
	}
	if summary.Firings != 1 || summary.DeferredFirings != 1 {
		t.Errorf("unexpected firing counters: %+v", summary)
	}
}

func TestMetrics_RecordLaunchSuccess(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordLaunchSuccess("nightly-import-manual-x7k2p")

	summary := metrics.Summary()
	if summary.LaunchSuccesses != 1 {
		t.Errorf("expected LaunchSuccesses=1, got %d", summary.LaunchSuccesses)
	}
	if summary.LastJobName != "nightly-import-manual-x7k2p" {
		t.Errorf("expected LastJobName to be recorded, got %q", summary.LastJobName)
	}
	if summary.LastSuccessAt.IsZero() {
		t.Error("expected LastSuccessAt to be set")
	}
}

func TestMetrics_RecordLaunchFailure(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordLaunchFailure(errors.New("failed to fetch CronJob: 403 forbidden"))
	metrics.RecordLaunchFailure(nil)

	summary := metrics.Summary()
	if summary.LaunchFailures != 2 {
		t.Errorf("expected LaunchFailures=2, got %d", summary.LaunchFailures)
	}
	if summary.LastFailure != "failed to fetch CronJob: 403 forbidden" {
		t.Errorf("expected LastFailure to keep the last non-nil error, got %q", summary.LastFailure)
	}
	if summary.LastFailureAt.IsZero() {
		t.Error("expected LastFailureAt to be set")
	}
}

func TestMetrics_LogSummaryFlattensLastFailure(t *testing.T) {
	var buf bytes.Buffer
	logging.InitForCLI(logging.LevelInfo, &buf)
	defer logging.Init(logging.LevelDebug, logging.FormatText, nil)

	metrics := NewMetrics()
	metrics.RecordLaunchFailure(errors.New("failed to create Job: 422 {\n  \"kind\": \"Status\"\n}"))
	metrics.LogSummary()

	output := buf.String()
	if !strings.Contains(output, "1 failed") {
		t.Errorf("expected failure count in summary, got %q", output)
	}
	if !strings.Contains(output, `422 { \"kind\": \"Status\" }`) && !strings.Contains(output, `422 { "kind": "Status" }`) {
		t.Errorf("expected flattened failure in summary, got %q", output)
	}
}
