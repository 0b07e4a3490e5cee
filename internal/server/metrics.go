package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_analyses_total",
		Help: "Coordination analyses served, by outcome",
	}, []string{"route", "outcome"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentinel_analysis_duration_seconds",
		Help:    "Wall time of one coordination analysis",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"route"})

	riskScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_overall_risk_score",
		Help:    "Distribution of overall risk scores",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	recordsPerRequest = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_validations_per_request",
		Help:    "Validation records received per analysis request",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)
