package reset

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resetIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "password_reset_issued_total",
			Help: "Total password reset codes issued",
		},
	)

	resetSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "password_reset_superseded_total",
			Help: "Total prior reset codes invalidated by a re-issue",
		},
	)

	resetVerifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "password_reset_verify_total",
			Help: "Total reset code verification outcomes",
		},
		[]string{"result"},
	)

	resetDeliveryFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "password_reset_delivery_failed_total",
			Help: "Total reset emails that could not be delivered",
		},
	)

	resetThrottledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "password_reset_throttled_total",
			Help: "Total reset issue requests rejected by the re-issue limit",
		},
	)
)
