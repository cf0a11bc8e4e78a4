package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_push_broadcasts_total",
		Help: "Total number of broadcasts started.",
	})

	sendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_push_sends_total",
			Help: "Push sends by transport and outcome.",
		},
		[]string{"transport", "status"},
	)

	prunedTokensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_push_pruned_tokens_total",
		Help: "Tokens deleted after the push service reported them as not registered.",
	})

	tokenRegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_push_token_registrations_total",
		Help: "Token registrations accepted by the gateway.",
	})
)
