package metrics

import "github.com/prometheus/client_golang/prometheus"

// WalletMetrics counts ledger postings and the optimistic-lock retries behind them.
type WalletMetrics struct {
	postings  *prometheus.CounterVec
	conflicts prometheus.Counter
}

// NewWalletMetrics registers the wallet metrics on the provided registerer.
func NewWalletMetrics(reg prometheus.Registerer) *WalletMetrics {
	if reg == nil {
		return &WalletMetrics{}
	}
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "wallet",
		Name:      "postings_total",
		Help:      "Wallet operations by kind and outcome.",
	}, []string{"operation", "outcome"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "wallet",
		Name:      "version_conflicts_total",
		Help:      "Wallet version compare-and-swap misses.",
	})
	reg.MustRegister(postings, conflicts)
	return &WalletMetrics{postings: postings, conflicts: conflicts}
}

// ObservePosting records the outcome of a wallet operation.
func (w *WalletMetrics) ObservePosting(operation, outcome string) {
	if w == nil || w.postings == nil {
		return
	}
	w.postings.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncConflict counts one compare-and-swap miss.
func (w *WalletMetrics) IncConflict() {
	if w == nil || w.conflicts == nil {
		return
	}
	w.conflicts.Inc()
}
