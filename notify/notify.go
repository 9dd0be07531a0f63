// Package notify is the port for short-lived user-facing messages.
// Implementations decide how a message reaches the user; callers only
// describe what happened.
package notify

import "go.uber.org/zap"

type Severity string

const (
	SeverityNormal      Severity = "normal"
	SeverityWarning     Severity = "warning"
	SeverityDestructive Severity = "destructive"
)

// Notification is a single toast-style message.
type Notification struct {
	Title       string
	Description string
	Severity    Severity
}

// Notifier delivers notifications to the user. Delivery is fire-and-forget;
// a Notifier must never fail the operation that produced the message.
type Notifier interface {
	Notify(n Notification)
}

// ZapNotifier writes notifications to a structured log. Used as the delivery
// sink when no UI is attached.
type ZapNotifier struct {
	logger *zap.Logger
}

func NewZapNotifier(logger *zap.Logger) *ZapNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapNotifier{logger: logger}
}

func (z *ZapNotifier) Notify(n Notification) {
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("description", n.Description),
	}
	switch n.Severity {
	case SeverityDestructive:
		z.logger.Error("notification", fields...)
	case SeverityWarning:
		z.logger.Warn("notification", fields...)
	default:
		z.logger.Info("notification", fields...)
	}
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	Notifications []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.Notifications = append(r.Notifications, n)
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	if len(r.Notifications) == 0 {
		return Notification{}, false
	}
	return r.Notifications[len(r.Notifications)-1], true
}
