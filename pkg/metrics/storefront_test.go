package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStorefrontMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStorefrontMetrics(reg)

	metrics.IncOTPRequested()
	metrics.IncOTPVerified("success")
	metrics.IncCheckoutAttempt("opened")
	metrics.ObserveWidgetLoad("ready", 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "otp_verified_total", "outcome", "success"); err != nil {
		t.Fatalf("fetch otp verified: %v", err)
	} else if got != 1 {
		t.Fatalf("expected otp_verified=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "checkout_attempts_total", "outcome", "opened"); err != nil {
		t.Fatalf("fetch checkout attempts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected checkout_attempts=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "checkout_widget_load_seconds", "outcome", "ready"); err != nil {
		t.Fatalf("fetch widget load: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected widget load sum > 0, got %f", got)
	}
}

func TestStorefrontMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewStorefrontMetrics(nil)
	metrics.IncOTPRequested()
	metrics.IncOTPVerified("success")
	metrics.IncCheckoutAttempt("opened")
	metrics.ObserveWidgetLoad("ready", time.Second)
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
