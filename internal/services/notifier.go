package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/sentinelfi/risk-engine/internal/config"
	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/observability"
)

// NotificationService pushes WARNING and CRITICAL assessments to the
// configured Telegram channel. Disabled or misconfigured notification is
// never fatal to the scoring cycle.
type NotificationService struct {
	bot    *bot.Bot
	chatID int64
	logger logging.Logger

	mu             sync.Mutex
	lastAlertLevel models.AlertLevel
}

// NewNotificationService creates the Telegram notifier. With notifications
// disabled or an invalid token the service stays inert and every Notify
// call is a no-op.
func NewNotificationService(cfg config.TelegramConfig, logger logging.Logger) *NotificationService {
	ns := &NotificationService{
		chatID:         cfg.ChatID,
		logger:         logger.WithComponent("notification_service"),
		lastAlertLevel: models.AlertNone,
	}
	if cfg.Enabled && cfg.BotToken != "" {
		b, err := bot.New(cfg.BotToken)
		if err != nil {
			ns.logger.WithError(err).Error("failed to initialize telegram bot, notifications disabled")
		} else {
			ns.bot = b
		}
	}
	return ns
}

// NotifyAssessment sends an alert for WARNING and CRITICAL assessments.
// Repeated alerts at the same level are suppressed until the level changes,
// so a sustained crisis does not flood the channel.
func (ns *NotificationService) NotifyAssessment(ctx context.Context, assessment models.RiskAssessment) error {
	// Evaluations run concurrently; the transition decision and the level
	// update must be atomic or parallel requests double-send or swallow
	// the alert. The lock is not held across the Telegram call.
	ns.mu.Lock()
	if assessment.AlertLevel != models.AlertWarning && assessment.AlertLevel != models.AlertCritical {
		ns.lastAlertLevel = assessment.AlertLevel
		ns.mu.Unlock()
		return nil
	}
	if assessment.AlertLevel == ns.lastAlertLevel {
		ns.mu.Unlock()
		return nil
	}
	ns.lastAlertLevel = assessment.AlertLevel
	ns.mu.Unlock()

	if ns.bot == nil {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanOpNotification, "telegram alert")
	var err error
	defer func() { observability.FinishSpan(span, err) }()

	_, err = ns.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ns.chatID,
		Text:      formatAlertMessage(assessment),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		err = fmt.Errorf("failed to send telegram alert: %w", err)
		ns.logger.WithError(err).Error("telegram alert delivery failed")
		observability.CaptureException(ctx, err)
		return err
	}

	ns.logger.Info("telegram alert sent: level=%s score=%d", assessment.AlertLevel, assessment.Consensus.ConsensusScore)
	return nil
}

// formatAlertMessage renders the Telegram alert body.
func formatAlertMessage(a models.RiskAssessment) string {
	var b strings.Builder

	icon := "⚠️"
	if a.AlertLevel == models.AlertCritical {
		icon = "🚨"
	}
	fmt.Fprintf(&b, "%s *%s: systemic risk %d/100*\n\n", icon, a.AlertLevel, a.Consensus.ConsensusScore)
	fmt.Fprintf(&b, "Confidence: %d%% (%s)\n", a.Consensus.ConfidenceLevel, a.Consensus.Method)
	fmt.Fprintf(&b, "Contagion risk: %d/100, worst-case loss $%.2fB\n",
		a.Contagion.AggregateContagionRisk, a.Contagion.WorstCaseSystemLoss/1e9)
	fmt.Fprintf(&b, "Depeg risk: %d/100", a.Depeg.DepegRiskScore)
	if a.Depeg.WorstDepeg != "" {
		fmt.Fprintf(&b, " (worst: %s)", a.Depeg.WorstDepeg)
	}
	b.WriteString("\n")

	for _, alert := range a.Depeg.Alerts {
		fmt.Fprintf(&b, "  - %s %s at %.4f (%.2f%% off peg)\n",
			alert.Severity, alert.Symbol, alert.CurrentPrice, alert.DeviationPercent)
	}

	if a.BreakerTripped {
		b.WriteString("\n*Circuit breaker threshold exceeded — gated operations halted.*")
	}

	return b.String()
}
