package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AIRequests counts AI provider calls by provider name and outcome.
var AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leadgen_ai_requests_total",
	Help: "AI provider requests partitioned by provider and outcome.",
}, []string{"provider", "outcome"})

// JobsFinished counts scraping jobs reaching a terminal status.
var JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leadgen_scraping_jobs_finished_total",
	Help: "Scraping jobs that reached a terminal status.",
}, []string{"status"})

// LeadsGenerated counts leads persisted by scraping jobs, per source type.
var LeadsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leadgen_leads_generated_total",
	Help: "Leads persisted by scraping jobs, partitioned by source type.",
}, []string{"source_type"})

// JobDuration observes wall-clock execution time of completed jobs.
var JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "leadgen_scraping_job_duration_seconds",
	Help:    "Execution time of scraping jobs from start to completion.",
	Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
})
