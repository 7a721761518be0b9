package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records RPC request and finality-poll statistics.
type Metrics struct {
	requests   *prometheus.CounterVec
	pollRounds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workspaces",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "JSON-RPC requests by method and result.",
		}, []string{"method", "result"}),
		pollRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "workspaces",
			Name:      "tx_poll_rounds",
			Help:      "Status polls needed before a transaction outcome was final.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.pollRounds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeRequest(method string, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, resultLabel(err)).Inc()
}

func (m *Metrics) observePoll(rounds int) {
	if m == nil {
		return
	}
	m.pollRounds.Observe(float64(rounds))
}

func resultLabel(err error) string {
	switch err.(type) {
	case nil:
		return "ok"
	case *TransportError:
		return "transport_error"
	case *ChainRejectionError:
		return "rejected"
	default:
		return "error"
	}
}
