package models

import "github.com/shopspring/decimal"

// ProtocolSnapshotRequest is one protocol's state in an evaluate request.
// Monetary fields are decimal on the wire and converted to float64 at the
// boundary; the scoring core works in float64 throughout.
type ProtocolSnapshotRequest struct {
	Name   string          `json:"name" binding:"required"`
	TVLUSD decimal.Decimal `json:"tvl_usd" binding:"required"`
	// RiskScore is optional; zero means "unknown" and the engine derives
	// a baseline from the TVL bands.
	RiskScore decimal.Decimal `json:"risk_score,omitempty"`
}

// EvaluateRequest is the POST /api/v1/risk/evaluate payload.
type EvaluateRequest struct {
	Protocols      []ProtocolSnapshotRequest `json:"protocols" binding:"required"`
	ReferencePrice decimal.Decimal           `json:"reference_price" binding:"required"`
}

// Metrics converts the request into evaluation-cycle protocol metrics.
// Negative TVLs are clamped to zero rather than rejected.
func (r EvaluateRequest) Metrics() []ProtocolMetric {
	metrics := make([]ProtocolMetric, 0, len(r.Protocols))
	for _, p := range r.Protocols {
		tvl, _ := p.TVLUSD.Float64()
		if tvl < 0 {
			tvl = 0
		}
		score, _ := p.RiskScore.Float64()
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		proto, _ := NormalizeProtocol(p.Name)
		metrics = append(metrics, ProtocolMetric{
			Name:      p.Name,
			Protocol:  proto,
			TVLUSD:    tvl,
			RiskScore: score,
		})
	}
	return metrics
}

// BacktestRequest selects which curated event to replay; an empty slug
// runs every event.
type BacktestRequest struct {
	EventSlug string `json:"event_slug,omitempty"`
}
