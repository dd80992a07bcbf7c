package logging

import (
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger interface defines the common logging methods.
type Logger interface {
	// WithComponent adds component name to the log context.
	WithComponent(componentName string) Logger
	// WithOperation adds operation name to the log context.
	WithOperation(operationName string) Logger
	// WithProtocol adds protocol name to the log context.
	WithProtocol(protocol string) Logger
	// WithEvent adds a backtest event slug to the log context.
	WithEvent(event string) Logger
	// WithError adds error details to the log context.
	WithError(err error) Logger
	// WithFields adds multiple fields to the log context and returns a Logger for chaining.
	WithFields(fields map[string]interface{}) Logger

	// Info logs an info-level message with optional arguments.
	Info(msg string, args ...interface{})
	// Warn logs a warning-level message with optional arguments.
	Warn(msg string, args ...interface{})
	// Error logs an error-level message with optional arguments.
	Error(msg string, args ...interface{})
	// Debug logs a debug-level message with optional arguments.
	Debug(msg string, args ...interface{})
	// Fatal logs a fatal-level message and exits.
	Fatal(msg string, args ...interface{})

	// LogStartup logs application startup information.
	LogStartup(serviceName string, version string, port int)
	// LogShutdown logs application shutdown information.
	LogShutdown(serviceName string, reason string)
	// LogAssessment logs a completed risk assessment in a standardized format.
	LogAssessment(score int, alertLevel string, method string)

	// Logger returns the underlying *zap.Logger.
	Logger() *zap.Logger
}

// StandardLogger provides a standardized logging interface.
type StandardLogger struct {
	logger *zap.Logger
}

// NewStandardLogger creates a new standardized logger based on configuration.
//
// Parameters:
//
//	logLevel: The log level (debug, info, warn, error).
//	environment: The environment (development, production).
//
// Returns:
//
//	*StandardLogger: The initialized logger.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	level := getZapLevel(logLevel)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var core zapcore.Core

	if environment == "development" || environment == "test" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
		core = zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)
	} else {
		jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)
		core = zapcore.NewCore(jsonEncoder, zapcore.AddSync(os.Stdout), level)
	}

	// Error and Fatal logs also go to Sentry when it is initialized.
	core = zapcore.NewTee(core, newSentryCore(level))

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &StandardLogger{
		logger: logger,
	}
}

func (l *StandardLogger) Logger() *zap.Logger {
	return l.logger
}

// WithComponent creates a logger with component context.
func (l *StandardLogger) WithComponent(componentName string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("component", componentName))}
}

// WithOperation creates a logger with operation context.
func (l *StandardLogger) WithOperation(operationName string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("operation", operationName))}
}

// WithProtocol creates a logger with protocol context.
func (l *StandardLogger) WithProtocol(protocol string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("protocol", protocol))}
}

// WithEvent creates a logger with backtest event context.
func (l *StandardLogger) WithEvent(event string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("event", event))}
}

// WithError creates a logger with error context.
func (l *StandardLogger) WithError(err error) Logger {
	return &StandardLogger{logger: l.logger.With(zap.Error(err))}
}

// WithFields adds multiple fields to the log context.
func (l *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	if len(fields) == 0 {
		return l
	}
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &StandardLogger{logger: l.logger.With(zapFields...)}
}

// Info logs an info-level message.
func (l *StandardLogger) Info(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Infof(msg, args...)
	} else {
		l.logger.Info(msg)
	}
}

// Warn logs a warning-level message.
func (l *StandardLogger) Warn(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Warnf(msg, args...)
	} else {
		l.logger.Warn(msg)
	}
}

// Error logs an error-level message.
func (l *StandardLogger) Error(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Errorf(msg, args...)
	} else {
		l.logger.Error(msg)
	}
}

// Debug logs a debug-level message.
func (l *StandardLogger) Debug(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Debugf(msg, args...)
	} else {
		l.logger.Debug(msg)
	}
}

// Fatal logs a fatal-level message.
func (l *StandardLogger) Fatal(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Fatalf(msg, args...)
	} else {
		l.logger.Fatal(msg)
	}
}

// LogStartup logs application startup information.
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.Info("Service starting",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.Int("port", port),
		zap.String("event", "startup"),
	)
}

// LogShutdown logs application shutdown information.
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.Info("Service shutting down",
		zap.String("service", serviceName),
		zap.String("reason", reason),
		zap.String("event", "shutdown"),
	)
}

// LogAssessment logs a completed risk assessment.
func (l *StandardLogger) LogAssessment(score int, alertLevel string, method string) {
	l.logger.Info("Risk assessment completed",
		zap.Int("consensus_score", score),
		zap.String("alert_level", alertLevel),
		zap.String("method", method),
		zap.String("event", "risk_assessment"),
	)
}

// getZapLevel converts string level to zapcore.Level.
func getZapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// sentryCore is a custom zapcore.Core that sends errors to Sentry.
type sentryCore struct {
	zapcore.LevelEnabler
}

func newSentryCore(minLevel zapcore.Level) *sentryCore {
	return &sentryCore{
		LevelEnabler: minLevel,
	}
}

func (s *sentryCore) With(fields []zapcore.Field) zapcore.Core {
	return s
}

func (s *sentryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if s.Enabled(ent.Level) && (ent.Level == zapcore.ErrorLevel || ent.Level == zapcore.FatalLevel) {
		return ce.AddCore(ent, s)
	}
	return ce
}

func (s *sentryCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	sentry.CaptureMessage(ent.Message)

	for _, f := range fields {
		if f.Type == zapcore.ErrorType && f.Interface != nil {
			if err, ok := f.Interface.(error); ok {
				sentry.CaptureException(err)
			}
		}
	}
	return nil
}

func (s *sentryCore) Sync() error {
	sentry.Flush(2 * time.Second)
	return nil
}
