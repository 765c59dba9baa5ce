package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound authorization metrics
	authorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudpayments_authorizations_total",
		Help: "Checkout authorization attempts by outcome",
	}, []string{
		"outcome", // redirect, rejected, no_redirect, transport_error, invalid_order
	})

	authorizationAmountMinor = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudpayments_authorization_amount_minor_total",
		Help: "Sum of amounts sent for authorization, in minor units",
	}, []string{"currency"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cloudpayments_gateway_request_duration_seconds",
		Help:    "Latency of tokens/auth calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"result", // ok, transport_error, circuit_open
	})

	gatewayCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cloudpayments_gateway_circuit_state",
		Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
	})

	// Inbound callback metrics
	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudpayments_callbacks_total",
		Help: "Pay notifications by outcome",
	}, []string{
		"outcome", // acknowledged, duplicate, signature_invalid, invoice_malformed, ...
	})

	callbackProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cloudpayments_callback_processing_duration_seconds",
		Help:    "Time from receipt to acknowledgement of a pay notification",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"outcome"})

	callbackAmountMinor = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudpayments_callback_amount_minor_total",
		Help: "Sum of acknowledged payment amounts, in minor units",
	}, []string{"currency"})

	// Business event delivery metrics
	eventDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "business_event_deliveries_total",
		Help: "Business event deliveries to the host application",
	}, []string{
		"event_type",
		"status", // accepted, rejected, failed
	})

	eventDeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "business_event_delivery_duration_seconds",
		Help:    "Time to deliver a business event",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"event_type"})
)

// RecordAuthorization records one checkout authorization attempt
func RecordAuthorization(outcome, currency string, amountMinor int64) {
	authorizationsTotal.WithLabelValues(outcome).Inc()
	if outcome == "redirect" {
		authorizationAmountMinor.WithLabelValues(currency).Add(float64(amountMinor))
	}
}

// RecordGatewayRequest records the latency of one outbound call
func RecordGatewayRequest(result string, seconds float64) {
	gatewayRequestDuration.WithLabelValues(result).Observe(seconds)
}

// SetGatewayCircuitState exports the breaker state as a gauge value
func SetGatewayCircuitState(state int) {
	gatewayCircuitState.Set(float64(state))
}

// RecordCallback records one pay notification
func RecordCallback(outcome string, seconds float64) {
	callbacksTotal.WithLabelValues(outcome).Inc()
	callbackProcessingDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordCallbackAmount adds an acknowledged payment to the revenue counter
func RecordCallbackAmount(currency string, amountMinor int64) {
	callbackAmountMinor.WithLabelValues(currency).Add(float64(amountMinor))
}

// RecordEventDelivery records a business event delivery
func RecordEventDelivery(eventType, status string, seconds float64) {
	eventDeliveriesTotal.WithLabelValues(eventType, status).Inc()
	eventDeliveryDuration.WithLabelValues(eventType).Observe(seconds)
}
