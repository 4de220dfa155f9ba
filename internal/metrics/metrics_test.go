package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は名前とラベルが一致するメトリクスを返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPRequest_CountsByRouteAndStatus はルート・ステータス別に集計されることを検証する。
func TestRecordHTTPRequest_CountsByRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/api/posts/{ref}", 200, 10*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/posts/{ref}", 200, 20*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/posts/{ref}", 404, time.Millisecond)

	ok := findMetric(t, reg, "biscuitblog_http_requests_total", map[string]string{"route": "/api/posts/{ref}", "status_code": "200"})
	if v := ok.GetCounter().GetValue(); v != 2 {
		t.Errorf("200 count = %v, want 2", v)
	}
	notFound := findMetric(t, reg, "biscuitblog_http_requests_total", map[string]string{"status_code": "404"})
	if v := notFound.GetCounter().GetValue(); v != 1 {
		t.Errorf("404 count = %v, want 1", v)
	}

	hist := findMetric(t, reg, "biscuitblog_http_request_duration_seconds", map[string]string{"method": "GET"})
	if n := hist.GetHistogram().GetSampleCount(); n != 3 {
		t.Errorf("duration samples = %d, want 3", n)
	}
}

func TestRecordHTTPRequest_EmptyRouteIsUnmatched(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "", 404, time.Millisecond)

	m := findMetric(t, reg, "biscuitblog_http_requests_total", map[string]string{"route": "unmatched"})
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("unmatched count = %v, want 1", v)
	}
}

func TestRecordLogin_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("success")
	c.RecordLogin("rejected")
	c.RecordLogin("rejected")

	m := findMetric(t, reg, "biscuitblog_logins_total", map[string]string{"outcome": "rejected"})
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("rejected = %v, want 2", v)
	}
}

func TestRecordUpload_ObservesBytesOnlyWhenPositive(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpload("success", 100*1024)
	c.RecordUpload("rejected", 0)

	m := findMetric(t, reg, "biscuitblog_uploads_total", map[string]string{"outcome": "success"})
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("success = %v, want 1", v)
	}
	hist := findMetric(t, reg, "biscuitblog_upload_bytes", nil)
	if n := hist.GetHistogram().GetSampleCount(); n != 1 {
		t.Errorf("upload_bytes samples = %d, want 1", n)
	}
}

func TestRecordSessionsSwept_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionsSwept(3)
	c.RecordSessionsSwept(0)

	m := findMetric(t, reg, "biscuitblog_sessions_swept_total", nil)
	if v := m.GetCounter().GetValue(); v != 3 {
		t.Errorf("swept = %v, want 3", v)
	}
}

// TestHandler_ServesExposition はHandlerがテキスト形式でメトリクスを返すことを検証する。
func TestHandler_ServesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogin("success")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "biscuitblog_logins_total") {
		t.Error("response should contain biscuitblog_logins_total")
	}
}
