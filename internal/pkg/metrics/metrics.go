package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grvtgate_logins_total",
		Help: "Session login attempts by result",
	}, []string{"result"})

	SignaturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grvtgate_signatures_total",
		Help: "Signed operations by kind and status",
	}, []string{"kind", "status"})

	RiskRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grvtgate_risk_rejects_total",
		Help: "Orders rejected by pre-trade checks by reason",
	}, []string{"reason"})

	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grvtgate_gateway_requests_total",
		Help: "Gateway HTTP requests by route and status class",
	}, []string{"route", "class"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grvtgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
