package session

import (
	"go.uber.org/zap"

	"labelmart/notify"
)

// Capability identifies a gated portal area.
type Capability string

const (
	CapabilityAdmin  Capability = "admin"
	CapabilityClient Capability = "client"
)

// Allowed reports whether the role state grants the capability. A state
// still loading grants nothing; callers show their loading view instead.
func Allowed(state RoleState, c Capability) bool {
	if state.IsLoading {
		return false
	}
	switch c {
	case CapabilityAdmin:
		return state.IsAdmin
	case CapabilityClient:
		return state.IsClient
	default:
		return false
	}
}

// Gate checks the live role state against the capability a portal requires.
// A denial is never silent: it is logged and surfaced as an explicit
// access-denied notification so the UI can redirect away.
func (r *Resolver) Gate(c Capability) bool {
	state := r.State()
	if Allowed(state, c) {
		return true
	}
	if state.IsLoading {
		return false
	}

	r.logger.Info("session: portal access denied",
		zap.String("capability", string(c)),
		zap.Bool("is_admin", state.IsAdmin),
		zap.Bool("is_client", state.IsClient))
	if r.notifier != nil {
		r.notifier.Notify(notify.Notification{
			Title:       "Access denied",
			Description: "You don't have permission to view this area.",
			Severity:    notify.SeverityDestructive,
		})
	}
	return false
}
