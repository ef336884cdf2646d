// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CampaignsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaigns_created_total",
		Help: "Campaigns successfully created, sub-campaigns included.",
	})

	CampaignsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaigns_deleted_total",
		Help: "Campaigns deleted.",
	})

	BatchJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_batch_jobs_total",
		Help: "Batch jobs by final handling outcome.",
	}, []string{"status"})

	SyncRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaign_sync_runs_total",
		Help: "Synchronizer runs against the dispatch provider.",
	})

	MessagesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_messages_resolved_total",
		Help: "Per-contact outcomes resolved by the synchronizer.",
	}, []string{"status"})
)
