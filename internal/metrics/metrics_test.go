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

// findMetricFamily はレジストリから指定名のメトリクスファミリーを取得する。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// counterByLabel はラベル値ごとのカウンタ値を返す。
func counterByLabel(mf *dto.MetricFamily, label string) map[string]float64 {
	values := map[string]float64{}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label {
				values[lp.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	return values
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はステータスコード別に記録されることを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(303)

	values := counterByLabel(findMetricFamily(t, reg, "catalog_http_requests_total"), "status_code")
	if values["200"] != 2 {
		t.Errorf("status 200 = %v, want 2", values["200"])
	}
	if values["303"] != 1 {
		t.Errorf("status 303 = %v, want 1", values["303"])
	}
}

// TestRecordRequestLatency_ObservesHistogram はヒストグラムに観測値が記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(120 * time.Millisecond)

	mf := findMetricFamily(t, reg, "catalog_http_request_duration_seconds")
	if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

// TestRecordLogin_CountsByResult はサインイン結果別に記録されることを検証する。
func TestRecordLogin_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin(LoginSucceeded)
	c.RecordLogin(LoginRejected)
	c.RecordLogin(LoginRejected)

	values := counterByLabel(findMetricFamily(t, reg, "catalog_logins_total"), "result")
	if values[LoginSucceeded] != 1 {
		t.Errorf("success = %v, want 1", values[LoginSucceeded])
	}
	if values[LoginRejected] != 2 {
		t.Errorf("rejected = %v, want 2", values[LoginRejected])
	}
}

// TestRecordItemMutation_CountsByOp は項目操作別に記録されることを検証する。
func TestRecordItemMutation_CountsByOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordItemMutation(MutationCreate)
	c.RecordItemMutation(MutationUpdate)
	c.RecordItemMutation(MutationDelete)
	c.RecordItemMutation(MutationDelete)

	values := counterByLabel(findMetricFamily(t, reg, "catalog_item_mutations_total"), "op")
	want := map[string]float64{MutationCreate: 1, MutationUpdate: 1, MutationDelete: 2}
	for op, v := range want {
		if values[op] != v {
			t.Errorf("op %s = %v, want %v", op, values[op], v)
		}
	}
}

// TestRecordOwnershipDenial_IncrementsCounter は所有者チェック拒否が記録されることを検証する。
func TestRecordOwnershipDenial_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOwnershipDenial()

	mf := findMetricFamily(t, reg, "catalog_ownership_denials_total")
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("ownership_denials_total = %v, want 1", got)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordRequestLatency(500 * time.Millisecond)
	c.RecordLogin(LoginSucceeded)
	c.RecordItemMutation(MutationCreate)
	c.RecordOwnershipDenial()

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"catalog_http_requests_total",
		"catalog_http_request_duration_seconds",
		"catalog_logins_total",
		"catalog_item_mutations_total",
		"catalog_ownership_denials_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はインターフェースの実装を検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
	var _ MetricsCollector = Nop{}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordOwnershipDenial()
	c2.RecordOwnershipDenial()
	c2.RecordOwnershipDenial()

	val1 := findMetricFamily(t, reg1, "catalog_ownership_denials_total").GetMetric()[0].GetCounter().GetValue()
	val2 := findMetricFamily(t, reg2, "catalog_ownership_denials_total").GetMetric()[0].GetCounter().GetValue()

	if val1 != 1 {
		t.Errorf("reg1 ownership_denials = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 ownership_denials = %v, want 2", val2)
	}
}
