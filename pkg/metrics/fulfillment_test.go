package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestFulfillmentMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewFulfillmentMetrics(reg)

	metrics.IncTransition("order_item", "delivered")
	metrics.IncOtpOutcome("delivery", "mismatch")
	metrics.IncWalletMovement("refund", "credit")
	metrics.IncOutboxPublish("published")
	metrics.ObserveOperation("verify_otp", 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "fulfillment_status_transitions_total", "to", "delivered"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "fulfillment_otp_verifications_total", "outcome", "mismatch"); err != nil {
		t.Fatalf("fetch otp outcomes: %v", err)
	} else if got != 1 {
		t.Fatalf("expected otp outcomes=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "wallet_movements_total", "kind", "refund"); err != nil {
		t.Fatalf("fetch wallet movements: %v", err)
	} else if got != 1 {
		t.Fatalf("expected wallet movements=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_publish_total", "result", "published"); err != nil {
		t.Fatalf("fetch outbox publish: %v", err)
	} else if got != 1 {
		t.Fatalf("expected outbox publish=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "fulfillment_operation_duration_seconds", "operation", "verify_otp"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestFulfillmentMetricsNilSafe(t *testing.T) {
	var metrics *FulfillmentMetrics
	metrics.IncTransition("order", "delivered")
	metrics.IncOtpOutcome("return", "match")
	metrics.IncWalletMovement("cashback", "credit")
	metrics.IncOutboxPublish("failed")
	metrics.ObserveOperation("refund", time.Second)

	unregistered := NewFulfillmentMetrics(nil)
	unregistered.IncTransition("order", "delivered")
	unregistered.ObserveOperation("refund", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
