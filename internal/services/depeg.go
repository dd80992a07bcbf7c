package services

import (
	"context"
	"math"
	"sort"

	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/observability"
)

// Depeg severity bands in percent deviation from the 1.00 peg.
const (
	depegCriticalPercent = 5.0
	depegWarningPercent  = 2.0
	depegWatchPercent    = 0.5
)

// DepegMonitor infers stablecoin peg deviation from macro signals when no
// direct price feed is in scope, and classifies observed deviations.
type DepegMonitor struct {
	logger logging.Logger
}

// NewDepegMonitor creates a depeg monitor.
func NewDepegMonitor(logger logging.Logger) *DepegMonitor {
	return &DepegMonitor{
		logger: logger.WithComponent("depeg_monitor"),
	}
}

// EstimateStablecoinPrices derives three stablecoin prices (USDT, USDC
// fiat-backed; DAI crypto-backed) from the reference asset price and
// per-protocol TVLs. The derivation is deterministic: reference-price
// stress bands, aggregate-TVL bands, and a Maker-collateral band, plus a
// small cosmetic perturbation from the reference price's fractional part.
// The perturbation is flavor noise for presentation parity, not a risk
// signal, and must never be replaced with an actual randomness source.
func (d *DepegMonitor) EstimateStablecoinPrices(referencePrice float64, tvls map[models.Protocol]float64) []models.StablecoinPrice {
	var fiatStress, cryptoStress float64

	switch {
	case referencePrice < 1000:
		cryptoStress = 0.03
		fiatStress = 0.005
	case referencePrice < 1500:
		cryptoStress = 0.01
		fiatStress = 0.002
	case referencePrice < 2000:
		cryptoStress = 0.003
		fiatStress = 0
	}

	var aggregateTVL float64
	for _, tvl := range tvls {
		aggregateTVL += tvl
	}
	switch {
	case aggregateTVL < 10e9:
		fiatStress += 0.003
	case aggregateTVL < 20e9:
		fiatStress += 0.001
	}

	// DAI's peg depends on Maker's collateral base specifically.
	makerTVL := tvls[models.ProtocolMaker]
	switch {
	case makerTVL < 2e9:
		cryptoStress += 0.02
	case makerTVL < 4e9:
		cryptoStress += 0.005
	}

	frac := referencePrice - math.Floor(referencePrice)
	jitter := (frac - 0.5) * 0.002

	coins := []models.StablecoinPrice{
		{Symbol: "USDT", Mechanism: models.MechanismFiatBacked},
		{Symbol: "USDC", Mechanism: models.MechanismFiatBacked},
		{Symbol: "DAI", Mechanism: models.MechanismCryptoBacked},
	}
	for i := range coins {
		stress := fiatStress
		if coins[i].Mechanism == models.MechanismCryptoBacked {
			stress = cryptoStress
		}
		price := 1.0 - stress
		// Alternate the perturbation's sign so the coins do not move in
		// lockstep.
		if i%2 == 0 {
			price += jitter
		} else {
			price -= jitter
		}
		coins[i].Price = math.Round(price*10000) / 10000
	}

	return coins
}

// AnalyzeDepegRisk classifies each stablecoin's peg deviation and computes
// the aggregate depeg-risk score. Alerts come back sorted CRITICAL first.
func (d *DepegMonitor) AnalyzeDepegRisk(ctx context.Context, stablecoins []models.StablecoinPrice) models.DepegAnalysis {
	_, span := observability.StartSpan(ctx, observability.SpanOpDepeg, "analyze depeg risk")
	defer observability.FinishSpan(span, nil)

	analysis := models.DepegAnalysis{
		Stablecoins: stablecoins,
		Alerts:      []models.DepegAlert{},
	}

	var weightedSum, deviationSum, worstDeviation float64
	for _, coin := range stablecoins {
		deviation := math.Abs(coin.Price - 1.0)
		deviationPercent := deviation * 100
		deviationSum += deviationPercent

		weightedSum += deviationPercent * coin.Mechanism.RiskMultiplier() * 10

		if deviationPercent > worstDeviation {
			worstDeviation = deviationPercent
			analysis.WorstDepeg = coin.Symbol
		}

		severity, alerted := classifyDepeg(deviationPercent)
		if !alerted {
			continue
		}
		analysis.Alerts = append(analysis.Alerts, models.DepegAlert{
			Symbol:           coin.Symbol,
			CurrentPrice:     coin.Price,
			DeviationPercent: deviationPercent,
			Severity:         severity,
			Mechanism:        coin.Mechanism,
			RiskFactor:       depegRiskFactor(coin.Mechanism),
		})
	}

	sort.SliceStable(analysis.Alerts, func(i, j int) bool {
		return analysis.Alerts[i].Severity.MoreSevereThan(analysis.Alerts[j].Severity)
	})

	analysis.DepegRiskScore = roundScore(weightedSum)
	if len(stablecoins) > 0 {
		analysis.AvgDeviation = deviationSum / float64(len(stablecoins))
	}

	if analysis.DepegRiskScore > 0 {
		d.logger.WithOperation("analyze_depeg").Debug(
			"depeg analysis: score=%d worst=%s alerts=%d", analysis.DepegRiskScore, analysis.WorstDepeg, len(analysis.Alerts))
	}

	return analysis
}

// classifyDepeg maps a percent deviation onto the alert bands; the second
// return is false below the WATCH band.
func classifyDepeg(deviationPercent float64) (models.DepegSeverity, bool) {
	switch {
	case deviationPercent >= depegCriticalPercent:
		return models.DepegCritical, true
	case deviationPercent >= depegWarningPercent:
		return models.DepegWarning, true
	case deviationPercent >= depegWatchPercent:
		return models.DepegWatch, true
	default:
		return "", false
	}
}

func depegRiskFactor(mechanism models.StablecoinMechanism) string {
	switch mechanism {
	case models.MechanismAlgorithmic:
		return "algorithmic peg with no hard collateral backstop; reflexive failure mode"
	case models.MechanismCryptoBacked:
		return "crypto-collateralized; peg depends on volatile collateral staying above liquidation ratios"
	default:
		return "fiat-reserve backed; peg depends on reserve quality and redemption access"
	}
}
