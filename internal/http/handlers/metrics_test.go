package handlers

import (
	"strings"
	"testing"

	"github.com/valyala/fasthttp"
)

// One registration per process; the default registry rejects duplicates.
func initMetricsOnce(t *testing.T) {
	t.Helper()
	if requestsServedTotal == nil {
		InitPrometheusMetrics()
	}
}

func TestServedRequestsAreScrapable(t *testing.T) {
	initMetricsOnce(t)

	handler := RequestLogger(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/healthz")
	handler(&ctx)

	var scrape fasthttp.RequestCtx
	scrape.Request.Header.SetMethod(fasthttp.MethodGet)
	scrape.Request.SetRequestURI("/metrics")
	PrometheusMetricsHandler()(&scrape)

	if scrape.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("scrape status = %d, want 200", scrape.Response.StatusCode())
	}
	body := string(scrape.Response.Body())
	if !strings.Contains(body, "trafficpulse_http_requests_total") {
		t.Fatal("scrape output has no trafficpulse_http_requests_total family")
	}
	if !strings.Contains(body, `route="/healthz"`) || !strings.Contains(body, `status="200"`) {
		t.Errorf("request labels missing from scrape output:\n%s", body)
	}
	if !strings.Contains(body, "trafficpulse_http_request_duration_seconds") {
		t.Error("scrape output has no duration histogram family")
	}
}

func TestScrapePrefixFilter(t *testing.T) {
	initMetricsOnce(t)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/metrics?prefix=trafficpulse_")
	PrometheusMetricsHandler()(&ctx)

	body := string(ctx.Response.Body())
	for _, line := range strings.Split(body, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "trafficpulse_") {
			t.Errorf("unfiltered sample in prefixed scrape: %q", line)
		}
	}
}
