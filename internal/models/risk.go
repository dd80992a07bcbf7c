package models

// AlertLevel is the single severity vocabulary shared by the consensus
// layer, the backtester and every presentation surface. The numeric
// thresholds live here and nowhere else.
type AlertLevel string

const (
	AlertNone     AlertLevel = "NONE"
	AlertWatch    AlertLevel = "WATCH"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Score thresholds for the shared severity vocabulary.
const (
	WatchThreshold    = 40
	WarningThreshold  = 60
	CriticalThreshold = 80
)

// AlertLevelForScore maps a 0-100 risk score onto the severity vocabulary.
func AlertLevelForScore(score int) AlertLevel {
	switch {
	case score > CriticalThreshold:
		return AlertCritical
	case score > WarningThreshold:
		return AlertWarning
	case score > WatchThreshold:
		return AlertWatch
	default:
		return AlertNone
	}
}

// ProtocolMetric is one protocol's state within an evaluation cycle.
// Instances are constructed fresh per cycle and never mutated.
type ProtocolMetric struct {
	// Name is the raw protocol name as supplied by the caller.
	Name string `json:"name"`
	// Protocol is the normalized identity; empty if the name did not resolve.
	Protocol Protocol `json:"protocol"`
	// TVLUSD is the total value locked in USD. Never negative.
	TVLUSD float64 `json:"tvl_usd"`
	// RiskScore is the protocol's standalone risk score, 0-100.
	RiskScore float64 `json:"risk_score"`
}

// CorrelationMatrix holds pairwise correlation coefficients in [-1, 1].
// It is symmetric with a unit diagonal and immutable after construction.
type CorrelationMatrix map[Protocol]map[Protocol]float64

// Coefficient returns the correlation between two protocols, 0 if unknown.
func (m CorrelationMatrix) Coefficient(a, b Protocol) float64 {
	if row, ok := m[a]; ok {
		if c, ok := row[b]; ok {
			return c
		}
	}
	return 0
}

// ContagionRate describes directed stress transmission between protocols.
type ContagionRate struct {
	// Rate is the fraction of the source shock transmitted, in [0, 1].
	Rate float64 `json:"rate"`
	// Mechanism is a short description of the transmission channel.
	Mechanism string `json:"mechanism"`
}

// CascadeStep is one protocol's estimated share of a contagion cascade.
type CascadeStep struct {
	Protocol                Protocol `json:"protocol"`
	EstimatedTVLDropPercent float64  `json:"estimated_tvl_drop_percent"`
	EstimatedLossUSD        float64  `json:"estimated_loss_usd"`
	Mechanism               string   `json:"mechanism"`
}

// ContagionScenario is the outcome of a single hypothetical shock.
type ContagionScenario struct {
	Trigger            string        `json:"trigger"`
	TriggerProtocol    Protocol      `json:"trigger_protocol"`
	TriggerDropPercent float64       `json:"trigger_drop_percent"`
	Cascade            []CascadeStep `json:"cascade"`
	TotalSystemLossUSD float64       `json:"total_system_loss_usd"`
	TimeToContagion    string        `json:"time_to_contagion"`
	SystemicRiskScore  int           `json:"systemic_risk_score"`
}

// ContagionAnalysis aggregates shock scenarios for the current snapshot.
type ContagionAnalysis struct {
	CorrelationMatrix      CorrelationMatrix    `json:"correlation_matrix"`
	Scenarios              []ContagionScenario  `json:"scenarios"`
	AggregateContagionRisk int                  `json:"aggregate_contagion_risk"`
	BlastRadius            map[Protocol]float64 `json:"blast_radius"`
	WorstCaseSystemLoss    float64              `json:"worst_case_system_loss"`
}

// StablecoinMechanism classifies how a stablecoin maintains its peg.
type StablecoinMechanism string

const (
	MechanismAlgorithmic  StablecoinMechanism = "algorithmic"
	MechanismCryptoBacked StablecoinMechanism = "crypto-backed"
	MechanismFiatBacked   StablecoinMechanism = "fiat-backed"
)

// RiskMultiplier weights peg deviations by how fragile the peg mechanism is.
func (m StablecoinMechanism) RiskMultiplier() float64 {
	switch m {
	case MechanismAlgorithmic:
		return 2.0
	case MechanismCryptoBacked:
		return 1.5
	default:
		return 1.0
	}
}

// StablecoinPrice is an estimated or observed stablecoin market price.
type StablecoinPrice struct {
	Symbol    string              `json:"symbol"`
	Price     float64             `json:"price"`
	Mechanism StablecoinMechanism `json:"mechanism"`
}

// DepegSeverity classifies how far a stablecoin has strayed from its peg.
type DepegSeverity string

const (
	DepegWatch    DepegSeverity = "WATCH"
	DepegWarning  DepegSeverity = "WARNING"
	DepegCritical DepegSeverity = "CRITICAL"
)

// priority orders severities for sorting; lower sorts first.
func (s DepegSeverity) priority() int {
	switch s {
	case DepegCritical:
		return 0
	case DepegWarning:
		return 1
	default:
		return 2
	}
}

// MoreSevereThan reports whether s outranks other.
func (s DepegSeverity) MoreSevereThan(other DepegSeverity) bool {
	return s.priority() < other.priority()
}

// DepegAlert flags one stablecoin whose deviation crossed an alert band.
type DepegAlert struct {
	Symbol           string              `json:"symbol"`
	CurrentPrice     float64             `json:"current_price"`
	DeviationPercent float64             `json:"deviation_percent"`
	Severity         DepegSeverity       `json:"severity"`
	Mechanism        StablecoinMechanism `json:"mechanism"`
	RiskFactor       string              `json:"risk_factor"`
}

// DepegAnalysis is the depeg monitor's output for one evaluation cycle.
type DepegAnalysis struct {
	Stablecoins []StablecoinPrice `json:"stablecoins"`
	// Alerts are sorted CRITICAL first, then WARNING, then WATCH.
	Alerts         []DepegAlert `json:"alerts"`
	DepegRiskScore int          `json:"depeg_risk_score"`
	WorstDepeg     string       `json:"worst_depeg"`
	// AvgDeviation is the mean absolute peg deviation, in percent.
	AvgDeviation float64 `json:"avg_deviation"`
}

// AIModelScore is one independent model's risk verdict.
type AIModelScore struct {
	Model      string  `json:"model"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	LatencyMS  int64   `json:"latency_ms"`
	Available  bool    `json:"available"`
}

// ConsensusMethod records how the consensus score was produced.
type ConsensusMethod string

const (
	MethodMultiAI      ConsensusMethod = "multi-ai"
	MethodSingleModel  ConsensusMethod = "single-model"
	MethodFallbackOnly ConsensusMethod = "fallback-only"
)

// ConsensusResult is the aggregator's output. It is always defined: with
// zero available models it degrades to a neutral 50 with zero confidence.
type ConsensusResult struct {
	ConsensusScore  int             `json:"consensus_score"`
	ConfidenceLevel int             `json:"confidence_level"`
	Scores          []AIModelScore  `json:"scores"`
	Spread          float64         `json:"spread"`
	Outliers        []string        `json:"outliers"`
	Method          ConsensusMethod `json:"method"`
}

// RiskAssessment bundles one full pipeline evaluation: the consensus score
// plus the contagion and depeg analyses as an explainability side-channel.
type RiskAssessment struct {
	ID             string            `json:"id"`
	EvaluatedAt    string            `json:"evaluated_at"`
	Consensus      ConsensusResult   `json:"consensus"`
	Contagion      ContagionAnalysis `json:"contagion"`
	Depeg          DepegAnalysis     `json:"depeg"`
	AlertLevel     AlertLevel        `json:"alert_level"`
	BreakerTripped bool              `json:"breaker_tripped"`
	Summary        string            `json:"summary"`
}
