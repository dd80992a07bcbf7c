package models

import "time"

// DailySnapshot is one historical day of inputs for the backtester.
type DailySnapshot struct {
	Date time.Time `json:"date"`
	// DaysBeforeEvent is positive before the event date, zero on it and
	// negative after.
	DaysBeforeEvent int `json:"days_before_event"`
	// ProtocolTVLs maps each monitored protocol to its TVL in USD.
	ProtocolTVLs map[Protocol]float64 `json:"protocol_tvls"`
	// ReferencePrice is the reference asset (ETH) price in USD.
	ReferencePrice float64 `json:"reference_price"`
	// StablecoinPrices optionally carries observed historical stablecoin
	// prices by symbol; when a supplied price deviates >= 2% from peg it
	// overrides the inferred depeg score for that day.
	StablecoinPrices map[string]float64 `json:"stablecoin_prices,omitempty"`
	Notes            string             `json:"notes,omitempty"`
}

// HistoricalEvent is a curated market-stress event with its snapshot
// timeline and the realized loss used for prevention estimates.
type HistoricalEvent struct {
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	EventDate     time.Time       `json:"event_date"`
	ActualLossUSD float64         `json:"actual_loss_usd"`
	Snapshots     []DailySnapshot `json:"snapshots"`
}

// BacktestDayResult is the pipeline's verdict for one historical day.
type BacktestDayResult struct {
	Date            time.Time `json:"date"`
	DaysBeforeEvent int       `json:"days_before_event"`

	ContagionRisk          int  `json:"contagion_risk"`
	DepegScore             int  `json:"depeg_score"`
	DepegOverridden        bool `json:"depeg_overridden"`
	RuleBasedScore         int  `json:"rule_based_score"`
	ContagionAdjustedScore int  `json:"contagion_adjusted_score"`
	HeuristicScore         int  `json:"heuristic_score"`

	FinalScore              int        `json:"final_score"`
	AlertLevel              AlertLevel `json:"alert_level"`
	CircuitBreakerTriggered bool       `json:"circuit_breaker_triggered"`
	ConfidenceLevel         int        `json:"confidence_level"`
	Notes                   string     `json:"notes,omitempty"`
}

// BacktestResult is the replay outcome for one historical event.
type BacktestResult struct {
	EventSlug     string              `json:"event_slug"`
	EventName     string              `json:"event_name"`
	EventDate     time.Time           `json:"event_date"`
	ActualLossUSD float64             `json:"actual_loss_usd"`
	Days          []BacktestDayResult `json:"days"`

	// FirstAlertDate is the earliest WARNING/CRITICAL day, falling back to
	// the earliest WATCH day, falling back to the event date itself.
	FirstAlertDate     time.Time `json:"first_alert_date"`
	FirstAlertLeadDays int       `json:"first_alert_lead_days"`
	// CircuitBreakerDate is nil when no day crossed the breaker threshold.
	CircuitBreakerDate *time.Time `json:"circuit_breaker_date"`
	BreakerLeadDays    int        `json:"breaker_lead_days"`

	PreventedLossesUSD   float64 `json:"prevented_losses_usd"`
	EffectivenessPercent int     `json:"effectiveness_percent"`
	FalsePositives       int     `json:"false_positives"`
}

// BacktestReport aggregates results across all curated events.
type BacktestReport struct {
	Results                 []BacktestResult `json:"results"`
	TotalActualLossUSD      float64          `json:"total_actual_loss_usd"`
	TotalPreventedUSD       float64          `json:"total_prevented_usd"`
	AvgEffectivenessPercent int              `json:"avg_effectiveness_percent"`
	TotalFalsePositives     int              `json:"total_false_positives"`
	EventsWithBreaker       int              `json:"events_with_breaker"`
	GeneratedAt             time.Time        `json:"generated_at"`
}
