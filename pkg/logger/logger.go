package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance writing to stdout
func New() *Logger {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a logger writing to w. Level comes from LOG_LEVEL;
// the text handler is used in gin debug mode, JSON otherwise.
func NewWithWriter(w io.Writer) *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithDeviceID scopes the logger to a scanning device
func (l *Logger) WithDeviceID(deviceID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("device_id", deviceID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Reservation logging methods

// LogHoldPlaced logs a new reservation entering the protocol
func (l *Logger) LogHoldPlaced(ctx context.Context, reservationID, venueID, userID, state, price string) {
	l.Logger.InfoContext(ctx,
		"Hold Placed",
		slog.String("reservation_id", reservationID),
		slog.String("venue_id", venueID),
		slog.String("user_id", userID),
		slog.String("state", state),
		slog.String("quoted_price", price),
	)
}

// LogReservationTransition logs an applied state change
func (l *Logger) LogReservationTransition(ctx context.Context, reservationID, from, event, to string) {
	l.Logger.InfoContext(ctx,
		"Reservation Transition",
		slog.String("reservation_id", reservationID),
		slog.String("from", from),
		slog.String("event", event),
		slog.String("to", to),
	)
}

// LogProtocolViolation logs an event the reservation protocol has no edge for.
// Benign duplicates are logged at debug level, everything else as an error.
func (l *Logger) LogProtocolViolation(ctx context.Context, reservationID, state, event string, benign bool) {
	attrs := []any{
		slog.String("reservation_id", reservationID),
		slog.String("state", state),
		slog.String("event", event),
	}
	if benign {
		l.Logger.DebugContext(ctx, "Duplicate Reservation Event Ignored", attrs...)
		return
	}
	l.Logger.ErrorContext(ctx, "Reservation Protocol Violation", attrs...)
}

// LogResaleRejected logs an offer refused by the price cap
func (l *Logger) LogResaleRejected(ctx context.Context, ticketID, sellerID, proposed, limit string) {
	l.Logger.WarnContext(ctx,
		"Resale Offer Rejected",
		slog.String("ticket_id", ticketID),
		slog.String("seller_id", sellerID),
		slog.String("proposed", proposed),
		slog.String("cap", limit),
	)
}

// Scanning logging methods

// LogScanQueued logs a scan persisted to the offline queue
func (l *Logger) LogScanQueued(ctx context.Context, scanID, entranceID, result string) {
	l.Logger.DebugContext(ctx,
		"Scan Queued",
		slog.String("scan_id", scanID),
		slog.String("entrance_id", entranceID),
		slog.String("result", result),
	)
}

// LogScanSync logs the outcome of one drain of the offline queue
func (l *Logger) LogScanSync(ctx context.Context, attempted, confirmed int, err error) {
	if err != nil {
		l.Logger.WarnContext(ctx,
			"Scan Sync Incomplete",
			slog.Int("attempted", attempted),
			slog.Int("confirmed", confirmed),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Logger.InfoContext(ctx,
		"Scan Sync",
		slog.Int("attempted", attempted),
		slog.Int("confirmed", confirmed),
	)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
