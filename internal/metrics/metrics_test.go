package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusClass(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{0, "other"},
		{99, "other"},
		{600, "other"},
	}

	for _, tc := range testCases {
		if got := StatusClass(tc.code); got != tc.expected {
			t.Errorf("StatusClass(%d) = %q; want %q", tc.code, got, tc.expected)
		}
	}
}

func TestRecordersUpdateRegistry(t *testing.T) {
	EnableMetrics()
	m := GetMetrics()

	beforeOK := testutil.ToFloat64(m.ProbesTotal.WithLabelValues("success"))
	beforeFailed := testutil.ToFloat64(m.ProbesTotal.WithLabelValues("failed"))
	before3xx := testutil.ToFloat64(m.ProbeStatusCodes.WithLabelValues("3xx"))
	beforeBytes := testutil.ToFloat64(m.OutputBytes)

	m.RecordProbe(301, true)
	m.RecordProbe(0, false)
	m.RecordOutputWrite(32)
	m.RecordDiscovery("ok", 7)

	if got := testutil.ToFloat64(m.ProbesTotal.WithLabelValues("success")) - beforeOK; got != 1 {
		t.Errorf("success probes delta = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.ProbesTotal.WithLabelValues("failed")) - beforeFailed; got != 1 {
		t.Errorf("failed probes delta = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.ProbeStatusCodes.WithLabelValues("3xx")) - before3xx; got != 1 {
		t.Errorf("3xx delta = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.OutputBytes) - beforeBytes; got != 32 {
		t.Errorf("output bytes delta = %v; want 32", got)
	}
	if got := testutil.ToFloat64(m.DiscoveryCandidates); got != 7 {
		t.Errorf("discovery candidates = %v; want 7", got)
	}
	if n, err := testutil.GatherAndCount(Registry(), "subhound_probes_total"); err != nil || n == 0 {
		t.Errorf("GatherAndCount(subhound_probes_total) = %d, %v", n, err)
	}
}

func TestStartMetricsServerBadAddress(t *testing.T) {
	EnableMetrics()
	if err := StartMetricsServer("256.0.0.1:bad"); err == nil {
		_ = ShutdownMetricsServer(context.Background())
		t.Fatal("expected listener error for invalid address")
	}
}
