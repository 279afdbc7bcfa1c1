package binding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "agency",
		Subsystem: "binding",
		Name:      "active_subscriptions",
		Help:      "Live store subscriptions currently held by hooks",
	}, []string{"kind"})

	deliveredSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agency",
		Subsystem: "binding",
		Name:      "snapshots_total",
		Help:      "Snapshots applied to hook state",
	}, []string{"kind"})

	discardedCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agency",
		Subsystem: "binding",
		Name:      "stale_callbacks_total",
		Help:      "Store callbacks dropped because their subscription was superseded or closed",
	}, []string{"kind"})

	subscriptionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agency",
		Subsystem: "binding",
		Name:      "errors_total",
		Help:      "Errors surfaced to hook state by kind",
	}, []string{"kind", "error_kind"})

	rejectedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agency",
		Subsystem: "binding",
		Name:      "rejected_documents_total",
		Help:      "Documents dropped at the read boundary",
	}, []string{"collection"})
)
