package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	txCreatedCounter      *prometheus.CounterVec
	wizardActionCounter   *prometheus.CounterVec
	lifecycleCounter      *prometheus.CounterVec
	rateRefreshCounter    *prometheus.CounterVec
	receiptPrintCounter   *prometheus.CounterVec
	notificationCounter   *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	pendingGauge          prometheus.Gauge
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		txCreatedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transactions_created_total",
			Help: "Transactions emitted to the store by commit path",
		}, []string{"type", "path"})

		wizardActionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_actions_total",
			Help: "Wizard action outcomes",
		}, []string{"action", "outcome"})

		lifecycleCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_status_transitions_total",
			Help: "Lifecycle status transitions applied",
		}, []string{"to"})

		rateRefreshCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_feed_refreshes_total",
			Help: "Rate feed refresh outcomes",
		}, []string{"result"})

		receiptPrintCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receipt_prints_total",
			Help: "Receipt print attempts",
		}, []string{"result"})

		notificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification events emitted",
		}, []string{"kind"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		pendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transactions_pending",
			Help: "Current number of pending transactions",
		})

		prometheus.MustRegister(
			httpDurationHistogram,
			txCreatedCounter,
			wizardActionCounter,
			lifecycleCounter,
			rateRefreshCounter,
			receiptPrintCounter,
			notificationCounter,
			idempotencyCounter,
			pendingGauge,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransactionCreated(txType, commitPath string) {
	if txCreatedCounter == nil {
		return
	}
	txCreatedCounter.WithLabelValues(txType, commitPath).Inc()
}

func IncrementWizardAction(action, outcome string) {
	if wizardActionCounter == nil {
		return
	}
	wizardActionCounter.WithLabelValues(action, outcome).Inc()
}

func IncrementStatusTransition(to string) {
	if lifecycleCounter == nil {
		return
	}
	lifecycleCounter.WithLabelValues(to).Inc()
}

func IncrementRateRefresh(result string) {
	if rateRefreshCounter == nil {
		return
	}
	rateRefreshCounter.WithLabelValues(result).Inc()
}

func IncrementReceiptPrint(result string) {
	if receiptPrintCounter == nil {
		return
	}
	receiptPrintCounter.WithLabelValues(result).Inc()
}

func IncrementNotification(kind string) {
	if notificationCounter == nil {
		return
	}
	notificationCounter.WithLabelValues(kind).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetPendingTransactions(n int64) {
	if pendingGauge == nil {
		return
	}
	pendingGauge.Set(float64(n))
}
