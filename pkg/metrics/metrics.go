package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TranscriptionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "transcriptions_completed_total",
		Help:      "Recordings that reached completed status",
	})
	TranscriptionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "transcriptions_failed_total",
		Help:      "Recordings that reached failed status",
	})
	SummariesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "summaries_created_total",
		Help:      "Summary rows persisted",
	})
	SummaryParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "summary_parse_failures_total",
		Help:      "Model responses that did not contain parsable JSON",
	})
	UploadsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "uploads_completed_total",
		Help:      "Uploads stored and registered for processing",
	})
	SweepDispatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "sweep_dispatches_total",
		Help:      "Recordings advanced by the sweep driver",
	})
)
