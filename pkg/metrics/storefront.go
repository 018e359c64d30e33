package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records login and checkout funnel counters.
type StorefrontMetrics struct {
	otpRequested     prometheus.Counter
	otpVerified      *prometheus.CounterVec
	checkoutAttempts *prometheus.CounterVec
	widgetLoad       *prometheus.HistogramVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	otpRequested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "otp_requested_total",
		Help: "Login codes requested.",
	})
	otpVerified := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_verified_total",
		Help: "Login code verification attempts by outcome.",
	}, []string{"outcome"})
	checkoutAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout hand-offs by outcome.",
	}, []string{"outcome"})
	widgetLoad := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_widget_load_seconds",
		Help:    "Time waiting for the hosted checkout to become ready.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(otpRequested, otpVerified, checkoutAttempts, widgetLoad)
	return &StorefrontMetrics{
		otpRequested:     otpRequested,
		otpVerified:      otpVerified,
		checkoutAttempts: checkoutAttempts,
		widgetLoad:       widgetLoad,
	}
}

// IncOTPRequested counts a requested login code.
func (s *StorefrontMetrics) IncOTPRequested() {
	if s == nil || s.otpRequested == nil {
		return
	}
	s.otpRequested.Inc()
}

// IncOTPVerified counts a verification attempt with the given outcome.
func (s *StorefrontMetrics) IncOTPVerified(outcome string) {
	if s == nil || s.otpVerified == nil {
		return
	}
	s.otpVerified.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCheckoutAttempt counts a checkout hand-off with the given outcome.
func (s *StorefrontMetrics) IncCheckoutAttempt(outcome string) {
	if s == nil || s.checkoutAttempts == nil {
		return
	}
	s.checkoutAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveWidgetLoad records the time spent waiting for the checkout embed.
func (s *StorefrontMetrics) ObserveWidgetLoad(outcome string, duration time.Duration) {
	if s == nil || s.widgetLoad == nil {
		return
	}
	s.widgetLoad.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
