package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/projects/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/projects/:id", "200"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/projects/42", nil)
	r.ServeHTTP(w, req)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/projects/:id", "200"))
	if after-before != 1 {
		t.Errorf("requests_total delta = %v, expected 1", after-before)
	}
}

func TestRecordDonation(t *testing.T) {
	before := testutil.ToFloat64(donationAmount.WithLabelValues("webhook"))
	RecordDonation("webhook", decimal.RequireFromString("12.50"))
	after := testutil.ToFloat64(donationAmount.WithLabelValues("webhook"))

	if after-before != 12.5 {
		t.Errorf("amount_total delta = %v, expected 12.5", after-before)
	}
}

func TestHandlerExposesCustomMetrics(t *testing.T) {
	RecordWebhookEvent("payment_intent.succeeded", "processed")
	SetQueueAsync(true)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(w, req)

	body := w.Body.String()
	for _, name := range []string{
		"marketplace_payments_webhook_events_total",
		"marketplace_queue_async_enabled 1",
		"go_goroutines",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
