package transport

import "testing"

// TestMetrics_RecordRequest_SplitsClientAndServerErrors verifies §3's 4xx vs
// 5xx error counters are credited independently instead of collapsing every
// non-2xx response into errorsClient.
func TestMetrics_RecordRequest_SplitsClientAndServerErrors(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("tools/call", "", "10.0.0.1", 5, 200)
	m.RecordRequest("tools/call", "", "10.0.0.1", 5, 404)
	m.RecordRequest("tools/call", "", "10.0.0.1", 5, 500)
	m.RecordRequest("tools/call", "", "10.0.0.1", 5, 503)

	snap := m.Snapshot()
	if snap.Requests != 4 {
		t.Fatalf("Requests = %d, want 4", snap.Requests)
	}
	if snap.ErrorsClient != 1 {
		t.Errorf("ErrorsClient = %d, want 1", snap.ErrorsClient)
	}
	if snap.ErrorsServer != 2 {
		t.Errorf("ErrorsServer = %d, want 2", snap.ErrorsServer)
	}
}
