package session

import "time"

// Phase tags the resolver's state machine.
type Phase string

const (
	// PhaseIdle means no principal is present.
	PhaseIdle Phase = "idle"
	// PhaseResolving means a lookup is in flight and the timer is running.
	PhaseResolving Phase = "resolving"
	// PhaseResolved means the lookup completed before the timer fired.
	PhaseResolved Phase = "resolved"
	// PhaseTimedOut means the timer fired first; flags hold the safe
	// fallback and any late lookup result is kept out of live state.
	PhaseTimedOut Phase = "timed_out"
)

// Flags are the capability indicators gating portal access.
type Flags struct {
	IsAdmin  bool
	IsClient bool
}

// RoleState is the resolver-owned state read by the UI. Consumers read it
// through State(); only the resolver writes it.
type RoleState struct {
	IsAdmin       bool
	IsClient      bool
	IsLoading     bool
	Phase         Phase
	LastCheckedAt time.Time
}

// fallbackFlags is the permissive default applied on lookup failure or
// timeout: every authenticated principal keeps client access so a backend
// hiccup never locks a customer out. Deliberate policy, see DESIGN.md.
func fallbackFlags() Flags {
	return Flags{IsAdmin: false, IsClient: true}
}
