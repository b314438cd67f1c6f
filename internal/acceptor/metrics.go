package acceptor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultHit      = "hit"
	resultMiss     = "miss"
)

type metrics struct {
	routes   *prometheus.CounterVec
	unroutes *prometheus.CounterVec
	resolves *prometheus.CounterVec
	table    prometheus.Gauge
}

// newMetrics registers the acceptor's collectors with reg. A nil reg leaves
// them unregistered.
func newMetrics(reg prometheus.Registerer, nukleus string) *metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"nukleus": nukleus}

	return &metrics{
		routes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "reaktor",
			Name:        "routes_total",
			Help:        "Route commands processed, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		unroutes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "reaktor",
			Name:        "unroutes_total",
			Help:        "Unroute commands processed, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		resolves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "reaktor",
			Name:        "resolves_total",
			Help:        "Route resolutions, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		table: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "reaktor",
			Name:        "routes",
			Help:        "Routes currently in the route table.",
			ConstLabels: labels,
		}),
	}
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
