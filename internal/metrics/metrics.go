package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marletmeets_refresh_total",
		Help: "Dashboard refresh cycles by role and result.",
	}, []string{"role", "result"})

	RefreshDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marletmeets_refresh_discarded_total",
		Help: "Refresh results discarded because their mount was gone or superseded.",
	})

	GeocodeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marletmeets_geocode_requests_total",
		Help: "Geocoding calls by result.",
	}, []string{"result"})
)
