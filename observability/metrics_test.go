package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordSyncRun(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordSyncRun("success", 2*time.Second)
	m.RecordSyncRun("success", time.Second)
	m.RecordSyncRun("error", time.Second)

	if got := testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("success runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error runs = %v, want 1", got)
	}
}

func TestMetrics_RecordOperations(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordOperationRecorded("buy")
	m.RecordOperationRecorded("buy")
	m.RecordOperationRecorded("fee")
	m.RecordOperationSkipped("unresolved_ticker")
	m.RecordPositionClosed()

	if got := testutil.ToFloat64(m.OperationsRecordedTotal.WithLabelValues("buy")); got != 2 {
		t.Errorf("buy operations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.OperationsSkippedTotal.WithLabelValues("unresolved_ticker")); got != 1 {
		t.Errorf("skipped operations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PositionsClosedTotal); got != 1 {
		t.Errorf("positions closed = %v, want 1", got)
	}
}

func TestGetMetrics_Lazy(t *testing.T) {
	globalMetrics = nil
	m := GetMetrics()
	if m == nil {
		t.Fatal("GetMetrics() returned nil")
	}
	if GetMetrics() != m {
		t.Error("GetMetrics() must return the same instance")
	}
}
