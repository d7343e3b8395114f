package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	CompaniesProcessed prometheus.Counter
	CompaniesFailed    *prometheus.CounterVec
	TokensUsed         prometheus.Counter
	SpendUSD           prometheus.Counter
	BudgetDenials      prometheus.Counter
	StageDuration      *prometheus.HistogramVec
	ValidationScore    prometheus.Histogram
}

// New creates and registers the pipeline metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CompaniesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "factsheet_companies_processed_total",
			Help: "Companies that completed the pipeline.",
		}),
		CompaniesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factsheet_companies_failed_total",
			Help: "Companies that failed, by failure kind.",
		}, []string{"kind"}),
		TokensUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "factsheet_tokens_total",
			Help: "Total LLM tokens consumed.",
		}),
		SpendUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "factsheet_spend_usd_total",
			Help: "Total LLM spend in USD.",
		}),
		BudgetDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "factsheet_budget_denials_total",
			Help: "Authorization requests refused by the budget guard.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "factsheet_stage_duration_seconds",
			Help:    "Wall time per pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"stage"}),
		ValidationScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "factsheet_validation_score",
			Help:    "Overall accuracy score per validated company.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
	reg.MustRegister(
		m.CompaniesProcessed, m.CompaniesFailed, m.TokensUsed,
		m.SpendUSD, m.BudgetDenials, m.StageDuration, m.ValidationScore,
	)
	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
