package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) []byte {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	return rr.Body.Bytes()
}

// TestMetricsMiddleware_EmitsRequestCounters verifies that wrapping a handler
// with MetricsMiddleware results in request metrics being exposed via the
// Prometheus /metrics handler.
func TestMetricsMiddleware_EmitsRequestCounters(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	MetricsMiddleware(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	if !bytes.Contains(scrape(t), []byte("whisperctl_http_requests_total")) {
		t.Fatal("whisperctl_http_requests_total not exposed")
	}
}

func TestDeploymentCounters(t *testing.T) {
	RecordAssetFetched("multilingual.tiktoken")
	RecordStepFailure("fetch")
	RecordStepFailure("")

	body := scrape(t)
	if !bytes.Contains(body, []byte(`whisperctl_deploy_assets_fetched_total{asset="multilingual.tiktoken"}`)) {
		t.Fatal("asset counter not exposed")
	}
	if !bytes.Contains(body, []byte(`whisperctl_deploy_step_failures_total{step="fetch"}`)) {
		t.Fatal("step failure counter not exposed")
	}
	if !bytes.Contains(body, []byte(`whisperctl_deploy_step_failures_total{step="unspecified"}`)) {
		t.Fatal("empty step label not normalized")
	}
}

func TestRoutePatternFallback(t *testing.T) {
	// outside a chi route context the raw path is used
	req := httptest.NewRequest(http.MethodGet, "/raw/path", nil)
	if got := routePatternOrPath(req); got != "/raw/path" {
		t.Fatalf("got %q", got)
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 7: "7", 200: "200", 404: "404", 503: "503"}
	for n, want := range cases {
		if got := itoa(n); got != want {
			t.Fatalf("itoa(%d)=%q", n, got)
		}
	}
}

func TestStatusRecorderDefault(t *testing.T) {
	// handlers that never call WriteHeader still record 200
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("implicit 200"))
	})
	sr := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: 200}
	next.ServeHTTP(sr, httptest.NewRequest(http.MethodGet, "/", nil))
	if sr.status != 200 {
		t.Fatalf("status=%d", sr.status)
	}
}
