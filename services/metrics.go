package services

import "github.com/prometheus/client_golang/prometheus"

var (
	articlesIngested       prometheus.Counter
	duplicatesSkipped      prometheus.Counter
	sinkFailures           *prometheus.CounterVec
	keywordCountDeviations prometheus.Counter
)

func init() {
	articlesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "articles_ingested_total",
		Help: "Total number of new articles written to the primary store.",
	})
	duplicatesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "articles_duplicate_total",
		Help: "Total number of redelivered articles skipped on URL conflict.",
	})
	sinkFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_failures_total",
		Help: "Total number of best-effort sink write failures.",
	}, []string{"sink"})
	keywordCountDeviations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrich_keyword_count_deviations_total",
		Help: "Total number of provider responses without exactly 5 keywords.",
	})
	prometheus.MustRegister(articlesIngested, duplicatesSkipped, sinkFailures, keywordCountDeviations)
}
