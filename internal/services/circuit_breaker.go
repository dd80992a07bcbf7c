package services

import (
	"sync"
	"time"

	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
)

// BreakerState represents the current state of the operations breaker.
type BreakerState int

const (
	// BreakerClosed: operations flow normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen: the consensus score crossed the critical threshold and
	// gated operations are halted.
	BreakerOpen
	// BreakerRecovering: scores have come back under the warning threshold
	// but not for long enough to fully close.
	BreakerRecovering
)

// BreakerStats holds counters for observability endpoints.
type BreakerStats struct {
	TotalEvaluations int64     `json:"total_evaluations"`
	Trips            int64     `json:"trips"`
	Recoveries       int64     `json:"recoveries"`
	LastTripTime     time.Time `json:"last_trip_time"`
	LastTripScore    int       `json:"last_trip_score"`
	StateChanges     int64     `json:"state_changes"`
}

// OperationsBreaker is the downstream consumer of the consensus score: it
// halts score-gated operations when a critical assessment lands and only
// closes again after a run of calm evaluations.
//
// Unlike a request-failure breaker, this one is driven purely by the risk
// score, so there is no half-open probe traffic; recovery is counted in
// consecutive sub-warning evaluations.
type OperationsBreaker struct {
	recoveryEvaluations int
	logger              logging.Logger

	mu              sync.RWMutex
	state           BreakerState
	calmStreak      int
	lastStateChange time.Time
	stats           BreakerStats
}

// NewOperationsBreaker creates a breaker that closes again after
// recoveryEvaluations consecutive sub-warning scores.
func NewOperationsBreaker(recoveryEvaluations int, logger logging.Logger) *OperationsBreaker {
	if recoveryEvaluations <= 0 {
		recoveryEvaluations = 3
	}
	return &OperationsBreaker{
		recoveryEvaluations: recoveryEvaluations,
		logger:              logger.WithComponent("operations_breaker"),
		state:               BreakerClosed,
		lastStateChange:     time.Now(),
	}
}

// Observe feeds one consensus score into the breaker and returns the
// resulting state.
func (b *OperationsBreaker) Observe(score int) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.TotalEvaluations++

	if score > models.CriticalThreshold {
		if b.state != BreakerOpen {
			b.setState(BreakerOpen)
			b.stats.Trips++
			b.stats.LastTripTime = time.Now()
			b.stats.LastTripScore = score
			b.logger.Warn("operations breaker tripped: score=%d", score)
		}
		b.calmStreak = 0
		return b.state
	}

	switch b.state {
	case BreakerOpen:
		if score <= models.WarningThreshold {
			b.setState(BreakerRecovering)
			b.calmStreak = 1
		}
	case BreakerRecovering:
		if score <= models.WarningThreshold {
			b.calmStreak++
			if b.calmStreak >= b.recoveryEvaluations {
				b.setState(BreakerClosed)
				b.calmStreak = 0
				b.stats.Recoveries++
				b.logger.Info("operations breaker closed after %d calm evaluations", b.recoveryEvaluations)
			}
		} else {
			// Elevated but not critical; restart the calm count.
			b.calmStreak = 0
		}
	}

	return b.state
}

// Allow reports whether score-gated operations may proceed.
func (b *OperationsBreaker) Allow() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state == BreakerClosed
}

// State returns the current breaker state.
func (b *OperationsBreaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Stats returns a snapshot of the breaker counters.
func (b *OperationsBreaker) Stats() BreakerStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// StateName returns the state as a string for API responses and logs.
func (b *OperationsBreaker) StateName() string {
	switch b.State() {
	case BreakerOpen:
		return "open"
	case BreakerRecovering:
		return "recovering"
	default:
		return "closed"
	}
}

func (b *OperationsBreaker) setState(state BreakerState) {
	if b.state == state {
		return
	}
	b.state = state
	b.lastStateChange = time.Now()
	b.stats.StateChanges++
}
