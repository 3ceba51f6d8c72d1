package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweptResetCodesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_sweep_reset_codes_total",
			Help: "Total expired reset codes superseded by the sweeper",
		},
	)

	sweptInvitationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_sweep_invitations_total",
			Help: "Total expired invitations marked by the sweeper",
		},
	)
)
