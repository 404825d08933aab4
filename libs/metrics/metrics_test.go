package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMiddlewareCountsByRoute(t *testing.T) {
	reg := New("test")
	h := reg.HTTP(func(*http.Request) string { return "fixed" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/a", "/b", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP test_http_requests_total HTTP requests by route, method and status.
# TYPE test_http_requests_total counter
test_http_requests_total{method="GET",route="fixed",status="200"} 2
test_http_requests_total{method="GET",route="fixed",status="404"} 1
`
	if err := testutil.GatherAndCompare(reg.Gatherer(), strings.NewReader(expected), "test_http_requests_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := New("test")
	reg.CounterVec("things_total", "Things.", "kind").WithLabelValues("x").Inc()

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `test_things_total{kind="x"} 1`) {
		t.Fatalf("unexpected exposition:\n%s", rec.Body.String())
	}
}
