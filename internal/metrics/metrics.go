// Package metrics defines Prometheus metrics for the CRM backend.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ChangesSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_property_changes_submitted_total",
			Help: "Property field changes submitted to the approval ledger",
		},
	)

	ChangesDecided = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_property_changes_decided_total",
			Help: "Property changes decided, by outcome",
		},
		[]string{"outcome"},
	)

	DecisionRejectedAuth = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_property_change_decisions_forbidden_total",
			Help: "Decision attempts rejected for missing approver role",
		},
	)

	LeadsImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_leads_imported_total",
			Help: "Leads imported from the spreadsheet source",
		},
	)

	PipelineMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_pipeline_moves_total",
			Help: "Client funnel stage transitions, by target stage",
		},
		[]string{"stage"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crm_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ChangesSubmitted, ChangesDecided, DecisionRejectedAuth,
		LeadsImported, PipelineMoves, WSConnections,
	)
}
