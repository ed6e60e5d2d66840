package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// AdminActionMetrics records fund movement and review decisions driven by admins.
type AdminActionMetrics struct {
	escrowMoved         *prometheus.CounterVec
	disputeResolutions  *prometheus.CounterVec
	moderationDecisions *prometheus.CounterVec
}

// NewAdminActionMetrics registers the admin action metrics on the provided registerer.
func NewAdminActionMetrics(reg prometheus.Registerer) *AdminActionMetrics {
	if reg == nil {
		return &AdminActionMetrics{}
	}
	escrowMoved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_amount_moved_total",
		Help: "Escrow funds disbursed, labeled by movement and currency.",
	}, []string{"movement", "currency"})
	disputeResolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispute_resolutions_total",
		Help: "Dispute resolutions applied, labeled by outcome.",
	}, []string{"resolution"})
	moderationDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_decisions_total",
		Help: "Moderation decisions applied, labeled by item kind and decision.",
	}, []string{"kind", "decision"})
	reg.MustRegister(escrowMoved, disputeResolutions, moderationDecisions)
	return &AdminActionMetrics{
		escrowMoved:         escrowMoved,
		disputeResolutions:  disputeResolutions,
		moderationDecisions: moderationDecisions,
	}
}

// ObserveEscrowMovement adds the disbursed amount for the movement/currency pair.
func (m *AdminActionMetrics) ObserveEscrowMovement(movement, currency string, amount decimal.Decimal) {
	if m == nil || m.escrowMoved == nil {
		return
	}
	value, _ := amount.Float64()
	m.escrowMoved.WithLabelValues(normalizeLabel(movement), normalizeLabel(currency)).Add(value)
}

// IncDisputeResolution counts one applied resolution.
func (m *AdminActionMetrics) IncDisputeResolution(resolution string) {
	if m == nil || m.disputeResolutions == nil {
		return
	}
	m.disputeResolutions.WithLabelValues(normalizeLabel(resolution)).Inc()
}

// IncModerationDecision counts one moderation decision.
func (m *AdminActionMetrics) IncModerationDecision(kind, decision string) {
	if m == nil || m.moderationDecisions == nil {
		return
	}
	m.moderationDecisions.WithLabelValues(normalizeLabel(kind), normalizeLabel(decision)).Inc()
}
