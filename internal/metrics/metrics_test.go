package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	ObserveCheck("notified")
	ObserveNotification("transition")
	ObserveDeliveryFailure()
	ObserveFetch(200, 120*time.Millisecond)
	ObserveHTTPRequest(http.MethodGet, 200)
}

func TestObserversSafeBeforeInit(t *testing.T) {
	// Observers must be no-ops when Init has not run; since Init may
	// already have run in this process, this only checks they never panic.
	ObserveCheck("no-op")
	ObserveDeliveryFailure()
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveCheck("notified")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected metrics exposition output")
	}
}
