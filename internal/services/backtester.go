package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sentinelfi/risk-engine/internal/config"
	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/observability"
)

// ErrUnknownEvent is returned when a requested event slug does not match
// any curated dataset.
type ErrUnknownEvent struct {
	Slug string
}

func (e ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown backtest event: %s", e.Slug)
}

// Backtester replays curated historical crisis timelines through the
// scoring pipeline to measure detection lead time and estimate prevented
// losses.
//
// The day-scoring rule here is deliberately more aggressive than the
// production consensus algorithm: it takes the MAX of four independent
// components so that any single alarmed sensor raises the overall alert.
// The two strategies are kept distinct on purpose.
type Backtester struct {
	contagion *ContagionSimulator
	depeg     *DepegMonitor
	rules     *RuleModel
	policy    config.BacktestConfig
	events    []models.HistoricalEvent
	logger    logging.Logger
}

// NewBacktester creates a backtester over the curated event datasets.
func NewBacktester(contagion *ContagionSimulator, depeg *DepegMonitor, rules *RuleModel, policy config.BacktestConfig, logger logging.Logger) *Backtester {
	if rules == nil {
		rules = DefaultRuleModel()
	}
	return &Backtester{
		contagion: contagion,
		depeg:     depeg,
		rules:     rules,
		policy:    policy,
		events:    CuratedEvents(),
		logger:    logger.WithComponent("backtester"),
	}
}

// Events lists the curated historical events available for replay.
func (b *Backtester) Events() []models.HistoricalEvent {
	return b.events
}

// ScoreDay runs the full pipeline over one historical day.
func (b *Backtester) ScoreDay(ctx context.Context, snapshot models.DailySnapshot) models.BacktestDayResult {
	metrics := make([]models.ProtocolMetric, 0, len(snapshot.ProtocolTVLs))
	for _, p := range models.AllProtocols() {
		tvl, ok := snapshot.ProtocolTVLs[p]
		if !ok {
			continue
		}
		metrics = append(metrics, models.ProtocolMetric{
			Name:      string(p),
			Protocol:  p,
			TVLUSD:    tvl,
			RiskScore: float64(b.rules.ProtocolSubScore(p, tvl)),
		})
	}

	contagion := b.contagion.AnalyzeContagion(ctx, metrics)

	inferred := b.depeg.AnalyzeDepegRisk(ctx, b.depeg.EstimateStablecoinPrices(snapshot.ReferencePrice, snapshot.ProtocolTVLs))
	depegScore := inferred.DepegRiskScore
	overridden := false
	if override, ok := historicalDepegScore(snapshot.StablecoinPrices); ok && override > depegScore {
		depegScore = override
		overridden = true
	}

	ruleScore := b.rules.ComputeRuleBasedScore(metrics, snapshot.ReferencePrice)
	adjustedScore := ContagionAdjustedScore(ruleScore, contagion.AggregateContagionRisk)
	heuristicScore := b.heuristicScore(snapshot, contagion.AggregateContagionRisk, depegScore)

	finalScore := ruleScore
	for _, s := range []int{adjustedScore, heuristicScore, depegScore} {
		if s > finalScore {
			finalScore = s
		}
	}
	// Max-signal floor: a strongly alarmed depeg sensor alone keeps the
	// overall score elevated.
	if depegScore > 20 {
		if floor := roundScore(0.8 * float64(depegScore)); floor > finalScore {
			finalScore = floor
		}
	}
	finalScore = clampScore(finalScore)

	spread := float64(maxInt(ruleScore, adjustedScore, heuristicScore) - minInt(ruleScore, adjustedScore, heuristicScore))

	return models.BacktestDayResult{
		Date:                    snapshot.Date,
		DaysBeforeEvent:         snapshot.DaysBeforeEvent,
		ContagionRisk:           contagion.AggregateContagionRisk,
		DepegScore:              depegScore,
		DepegOverridden:         overridden,
		RuleBasedScore:          ruleScore,
		ContagionAdjustedScore:  adjustedScore,
		HeuristicScore:          heuristicScore,
		FinalScore:              finalScore,
		AlertLevel:              models.AlertLevelForScore(finalScore),
		CircuitBreakerTriggered: finalScore > models.CriticalThreshold,
		ConfidenceLevel:         confidenceFromSpread(spread, 0),
		Notes:                   snapshot.Notes,
	}
}

// historicalDepegScore converts observed historical stablecoin prices into
// a depeg score: min(100, round(deviation × 200)) per coin, taking the
// maximum. Deviations under 2% are ignored so the inferred estimate keeps
// precedence in calm periods.
func historicalDepegScore(prices map[string]float64) (int, bool) {
	best := 0
	found := false
	for _, price := range prices {
		deviation := math.Abs(price - 1.0)
		if deviation < 0.02 {
			continue
		}
		score := int(math.Round(deviation * 200))
		if score > 100 {
			score = 100
		}
		if score > best {
			best = score
		}
		found = true
	}
	return best, found
}

// TVL-health tiers over total system TVL: thinner systems absorb shocks
// worse.
var tvlHealthTiers = []struct {
	below  float64
	points float64
}{
	{5e9, 35},
	{8e9, 28},
	{12e9, 20},
	{18e9, 10},
	{25e9, 5},
}

// Reference-price stress tiers.
var priceStressTiers = []struct {
	below  float64
	points float64
}{
	{800, 30},
	{1100, 25},
	{1400, 18},
	{1700, 12},
	{2000, 6},
	{2400, 2},
}

// Per-stablecoin deviation tiers: percent deviation thresholds mapped to a
// fraction of the mechanism's maximum points.
var depegPointTiers = []struct {
	percent  float64
	fraction float64
}{
	{50, 1.0},
	{30, 0.85},
	{20, 0.70},
	{10, 0.50},
	{5, 0.35},
	{2, 0.20},
	{1, 0.10},
	{0.5, 0.05},
}

// heuristicScore is the backtester's fourth, independent scoring component:
// TVL-health and price-stress bands, per-stablecoin deviation points,
// contagion and depeg amplifiers, and a TVL-concentration bonus.
func (b *Backtester) heuristicScore(snapshot models.DailySnapshot, contagionRisk, depegScore int) int {
	var score float64

	var totalTVL, largestTVL float64
	for _, tvl := range snapshot.ProtocolTVLs {
		totalTVL += tvl
		if tvl > largestTVL {
			largestTVL = tvl
		}
	}

	for _, tier := range tvlHealthTiers {
		if totalTVL < tier.below {
			score += tier.points
			break
		}
	}
	for _, tier := range priceStressTiers {
		if snapshot.ReferencePrice < tier.below {
			score += tier.points
			break
		}
	}

	for symbol, price := range snapshot.StablecoinPrices {
		deviationPercent := math.Abs(price-1.0) * 100
		maxPoints := depegMaxPoints(mechanismForSymbol(symbol))
		for _, tier := range depegPointTiers {
			if deviationPercent >= tier.percent {
				score += maxPoints * tier.fraction
				break
			}
		}
	}

	score += 0.2 * float64(contagionRisk)
	score += 0.15 * float64(depegScore)

	if totalTVL > 0 {
		share := largestTVL / totalTVL
		switch {
		case share > 0.6:
			score += 10
		case share > 0.5:
			score += 5
		}
	}

	return roundScore(score)
}

// depegMaxPoints caps a stablecoin's heuristic contribution by how fragile
// its peg mechanism is.
func depegMaxPoints(mechanism models.StablecoinMechanism) float64 {
	switch mechanism {
	case models.MechanismAlgorithmic:
		return 50
	case models.MechanismCryptoBacked:
		return 40
	default:
		return 15
	}
}

// mechanismForSymbol classifies the stablecoin symbols appearing in the
// curated datasets.
func mechanismForSymbol(symbol string) models.StablecoinMechanism {
	switch strings.ToUpper(symbol) {
	case "UST", "USTC":
		return models.MechanismAlgorithmic
	case "DAI", "LUSD", "SUSD", "FRAX":
		return models.MechanismCryptoBacked
	default:
		return models.MechanismFiatBacked
	}
}

// BacktestEvent replays one event's timeline and derives first-alert date,
// circuit-breaker date, and the loss-prevention estimate.
func (b *Backtester) BacktestEvent(ctx context.Context, event models.HistoricalEvent) models.BacktestResult {
	ctx, span := observability.StartSpanWithTags(ctx, observability.SpanOpBacktest, "backtest event", map[string]string{
		"event": event.Slug,
	})
	defer observability.FinishSpan(span, nil)
	defer observability.RecoverAndCapture(ctx, "backtest_event")

	log := b.logger.WithEvent(event.Slug)

	result := models.BacktestResult{
		EventSlug:     event.Slug,
		EventName:     event.Name,
		EventDate:     event.EventDate,
		ActualLossUSD: event.ActualLossUSD,
		Days:          make([]models.BacktestDayResult, 0, len(event.Snapshots)),
	}

	var firstWarning, firstWatch, firstBreaker *models.BacktestDayResult
	for _, snapshot := range event.Snapshots {
		day := b.ScoreDay(ctx, snapshot)
		result.Days = append(result.Days, day)

		if day.AlertLevel == models.AlertWarning || day.AlertLevel == models.AlertCritical {
			if firstWarning == nil {
				d := day
				firstWarning = &d
			}
			if day.DaysBeforeEvent > b.policy.FalsePositiveWindowDays {
				result.FalsePositives++
			}
		}
		if day.AlertLevel == models.AlertWatch && firstWatch == nil {
			d := day
			firstWatch = &d
		}
		if day.CircuitBreakerTriggered && firstBreaker == nil {
			d := day
			firstBreaker = &d
		}
	}

	switch {
	case firstWarning != nil:
		result.FirstAlertDate = firstWarning.Date
		result.FirstAlertLeadDays = firstWarning.DaysBeforeEvent
	case firstWatch != nil:
		result.FirstAlertDate = firstWatch.Date
		result.FirstAlertLeadDays = firstWatch.DaysBeforeEvent
	default:
		result.FirstAlertDate = event.EventDate
		result.FirstAlertLeadDays = 0
	}

	if firstBreaker != nil {
		d := firstBreaker.Date
		result.CircuitBreakerDate = &d
		result.BreakerLeadDays = firstBreaker.DaysBeforeEvent
	}

	fraction := b.preventedFraction(firstBreaker, result.FirstAlertLeadDays, firstWarning != nil || firstWatch != nil)
	result.PreventedLossesUSD = event.ActualLossUSD * fraction
	result.EffectivenessPercent = int(math.Round(fraction * 100))

	log.Info("backtest complete: first_alert_lead=%dd breaker=%v effectiveness=%d%%",
		result.FirstAlertLeadDays, firstBreaker != nil, result.EffectivenessPercent)
	observability.AddBreadcrumb(ctx, "backtest",
		fmt.Sprintf("%s: alert lead %dd, effectiveness %d%%",
			event.Slug, result.FirstAlertLeadDays, result.EffectivenessPercent),
		sentry.LevelInfo)

	return result
}

// preventedFraction is the loss-prevention policy: a step function of
// circuit-breaker lead time, falling back to first-alert lead time when no
// breaker fired. The fractions are configurable policy parameters, not
// derived ground truth.
func (b *Backtester) preventedFraction(breaker *models.BacktestDayResult, alertLeadDays int, alerted bool) float64 {
	if breaker != nil && breaker.DaysBeforeEvent >= 0 {
		switch {
		case breaker.DaysBeforeEvent >= 3:
			return b.policy.BreakerLead3dFraction
		case breaker.DaysBeforeEvent >= 1:
			return b.policy.BreakerLead1dFraction
		default:
			return b.policy.BreakerSameDayFraction
		}
	}
	if alerted {
		switch {
		case alertLeadDays >= 3:
			return b.policy.AlertLead3dFraction
		case alertLeadDays >= 1:
			return b.policy.AlertLead1dFraction
		}
	}
	return 0
}

// RunBacktest replays a single event by slug.
func (b *Backtester) RunBacktest(ctx context.Context, slug string) (models.BacktestResult, error) {
	for _, event := range b.events {
		if event.Slug == slug {
			return b.BacktestEvent(ctx, event), nil
		}
	}
	return models.BacktestResult{}, ErrUnknownEvent{Slug: slug}
}

// RunAllBacktests replays every curated event and aggregates totals.
func (b *Backtester) RunAllBacktests(ctx context.Context) models.BacktestReport {
	report := models.BacktestReport{
		Results:     make([]models.BacktestResult, 0, len(b.events)),
		GeneratedAt: time.Now().UTC(),
	}

	effectivenessSum := 0
	for _, event := range b.events {
		result := b.BacktestEvent(ctx, event)
		report.Results = append(report.Results, result)
		report.TotalActualLossUSD += result.ActualLossUSD
		report.TotalPreventedUSD += result.PreventedLossesUSD
		report.TotalFalsePositives += result.FalsePositives
		effectivenessSum += result.EffectivenessPercent
		if result.CircuitBreakerDate != nil {
			report.EventsWithBreaker++
		}
	}
	if len(report.Results) > 0 {
		report.AvgEffectivenessPercent = int(math.Round(float64(effectivenessSum) / float64(len(report.Results))))
	}

	return report
}

func maxInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
