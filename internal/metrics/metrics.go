package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exported on the ops server's /metrics endpoint.
var (
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whitelistbot_updates_total",
		Help: "Inbound bot updates by kind (command, text, callback).",
	}, []string{"kind"})

	StudentOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whitelistbot_student_ops_total",
		Help: "Whitelist mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	RenderFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whitelistbot_render_fallbacks_total",
		Help: "Times the renderer fell back from edit to delete-and-resend.",
	})
)
