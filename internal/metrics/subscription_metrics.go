package metrics

import (
	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы создания платежа
const (
	ChargeOutcomeOffer         = "offer"
	ChargeOutcomeNoPaymentCode = "no_payment_code"
	ChargeOutcomeGatewayError  = "gateway_error"
	ChargeOutcomeStoreError    = "store_error"
)

// SubscriptionMetrics метрики платежей, вебхуков и проверки истечения
type SubscriptionMetrics interface {
	IncChargeCreated(outcome string)
	ObserveGatewayLatency(seconds float64)
	IncWebhook(outcome domain.ReconcileOutcome)
	IncActivated()
	IncExpired()
	ObserveSweep(seconds float64, failed bool)
}

type subscriptionMetrics struct {
	chargesCreated *prometheus.CounterVec
	gatewayLatency prometheus.Histogram
	webhooks       *prometheus.CounterVec
	activations    prometheus.Counter
	expirations    prometheus.Counter
	sweepDuration  *prometheus.HistogramVec
}

// NewSubscriptionMetrics регистрирует метрики в registry
func NewSubscriptionMetrics(registry *prometheus.Registry) SubscriptionMetrics {
	factory := promauto.With(registry)

	return &subscriptionMetrics{
		chargesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pix_charges_created_total",
				Help: "Pix charge attempts by outcome",
			},
			[]string{"outcome"},
		),
		gatewayLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pix_gateway_request_duration_seconds",
				Help:    "Latency of create-transaction calls to the gateway",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pix_webhooks_total",
				Help: "Gateway postbacks by reconciliation outcome",
			},
			[]string{"outcome"},
		),
		activations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vip_subscriptions_activated_total",
				Help: "Subscriptions activated or renewed",
			},
		),
		expirations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vip_subscriptions_expired_total",
				Help: "Subscriptions deactivated by the expiry sweep",
			},
		),
		sweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vip_expiry_sweep_duration_seconds",
				Help:    "Duration of expiry sweep runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
	}
}

func (m *subscriptionMetrics) IncChargeCreated(outcome string) {
	m.chargesCreated.WithLabelValues(outcome).Inc()
}

func (m *subscriptionMetrics) ObserveGatewayLatency(seconds float64) {
	m.gatewayLatency.Observe(seconds)
}

func (m *subscriptionMetrics) IncWebhook(outcome domain.ReconcileOutcome) {
	m.webhooks.WithLabelValues(string(outcome)).Inc()
}

func (m *subscriptionMetrics) IncActivated() {
	m.activations.Inc()
}

func (m *subscriptionMetrics) IncExpired() {
	m.expirations.Inc()
}

// ObserveSweep записывает длительность прохода; failed если хоть один подписчик не обработан
func (m *subscriptionMetrics) ObserveSweep(seconds float64, failed bool) {
	result := "ok"
	if failed {
		result = "partial_failure"
	}
	m.sweepDuration.WithLabelValues(result).Observe(seconds)
}
