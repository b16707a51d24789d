package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DownloadsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftkeeper_downloads_recorded_total",
			Help: "Total number of template downloads recorded",
		},
		[]string{"tier"},
	)

	DownloadsDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftkeeper_downloads_denied_total",
			Help: "Total number of download attempts rejected by the entitlement check",
		},
		[]string{"reason"},
	)

	QuotaResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftkeeper_quota_resets_total",
			Help: "Total number of download counter resets at period boundaries",
		},
		[]string{"period_months"},
	)

	PlanSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftkeeper_plan_selections_total",
			Help: "Total number of trial plan selections",
		},
		[]string{"plan"},
	)

	PaymentsConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftkeeper_payments_confirmed_total",
			Help: "Total number of payment confirmations applied to profiles",
		},
		[]string{"plan"},
	)

	DownloadEventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftkeeper_download_events_processed_total",
			Help: "Total number of download events handled by the analytics orchestrator",
		},
		[]string{"result"},
	)
)

// Tier labels a profile for download metrics.
func Tier(isAdmin, isPremium bool) string {
	switch {
	case isAdmin:
		return "admin"
	case isPremium:
		return "premium"
	}
	return "free"
}
