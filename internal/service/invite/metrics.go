package invite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inviteSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "project_invites_sent_total",
			Help: "Total project invitations sent",
		},
	)

	inviteSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "project_invites_superseded_total",
			Help: "Total pending invitations cancelled by a re-invite",
		},
	)

	inviteAcceptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_invite_accept_total",
			Help: "Total invitation acceptance outcomes",
		},
		[]string{"result"},
	)

	inviteCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "project_invites_cancelled_total",
			Help: "Total invitations cancelled by an inviter",
		},
	)

	inviteDeliveryFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "project_invite_delivery_failed_total",
			Help: "Total invitation emails that could not be delivered",
		},
	)
)
