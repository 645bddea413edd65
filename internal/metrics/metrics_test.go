package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/promptvault/internal/metrics"
)

func TestRecordDeletion(t *testing.T) {
	before := testutil.ToFloat64(metrics.DeletionsTotal.WithLabelValues("full", "success"))

	metrics.RecordDeletion("full", "success")
	metrics.RecordDeletion("full", "success")

	after := testutil.ToFloat64(metrics.DeletionsTotal.WithLabelValues("full", "success"))
	if after-before != 2 {
		t.Errorf("deletions delta = %v, want 2", after-before)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	metrics.RecordDeletion("partial", "not_found")
	metrics.ObserveLockWait(10 * time.Millisecond)
	metrics.CacheInvalidationFailures.Inc()
	metrics.ArchiveFailures.Inc()

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{
		"promptvault_deletions_total",
		"promptvault_lock_wait_seconds",
		"promptvault_cache_invalidation_failures_total",
		"promptvault_archive_failures_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
