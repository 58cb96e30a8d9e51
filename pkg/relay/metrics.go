package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "carlot_relay_submissions_total",
		Help: "Inquiry submissions by result (sent, failed, rejected).",
	},
	[]string{"result"},
)
