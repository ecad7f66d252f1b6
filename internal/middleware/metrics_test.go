package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockRequestRecorder struct {
	statuses  []int
	latencies []time.Duration
}

func (m *mockRequestRecorder) RecordHTTPStatus(code int) { m.statuses = append(m.statuses, code) }
func (m *mockRequestRecorder) RecordRequestLatency(d time.Duration) {
	m.latencies = append(m.latencies, d)
}

func TestMetricsMiddleware_RecordsStatusAndLatency(t *testing.T) {
	rec := &mockRequestRecorder{}
	handler := NewMetricsMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusUnauthorized {
		t.Errorf("statuses = %v, want [401]", rec.statuses)
	}
	if len(rec.latencies) != 1 || rec.latencies[0] < 0 {
		t.Errorf("latencies = %v, want one non-negative value", rec.latencies)
	}
}

func TestMetricsMiddleware_ImplicitOK(t *testing.T) {
	rec := &mockRequestRecorder{}
	handler := NewMetricsMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusOK {
		t.Errorf("statuses = %v, want [200]", rec.statuses)
	}
}
