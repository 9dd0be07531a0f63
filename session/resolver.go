// Package session resolves the current principal's capability flags with a
// bounded-time guarantee: the UI is never left loading indefinitely, however
// slow the backend role lookup is.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"labelmart/gateway"
	"labelmart/notify"
)

// DefaultTimeout bounds a single resolution.
const DefaultTimeout = 5 * time.Second

// Lookup fetches capability flags for a principal. Implementations may hit
// the backend; the resolver tolerates failure and latency.
type Lookup func(ctx context.Context, p gateway.Principal) (Flags, error)

// Resolver owns RoleState. Resolutions for the principal are coalesced: at
// most one lookup is in flight, and a timed-out decision sticks for live
// state even if the lookup answers later.
type Resolver struct {
	lookup   Lookup
	notifier notify.Notifier
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time

	mu          sync.Mutex
	state       RoleState
	lastKnown   Flags
	inFlight    bool
	principalID string
	token       uint64
	done        chan struct{}
}

func NewResolver(lookup Lookup, notifier notify.Notifier, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		lookup:   lookup,
		notifier: notifier,
		logger:   logger,
		timeout:  DefaultTimeout,
		now:      time.Now,
		state:    RoleState{Phase: PhaseIdle},
	}
}

// WithTimeout overrides the resolution bound.
func (r *Resolver) WithTimeout(d time.Duration) *Resolver {
	r.timeout = d
	return r
}

// WithClock overrides the clock used for LastCheckedAt.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// State returns a snapshot of the resolver-owned role state.
func (r *Resolver) State() RoleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastKnown returns the stored flags, which a late post-timeout lookup
// result may have refreshed even though live state kept the fallback.
func (r *Resolver) LastKnown() Flags {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastKnown
}

// Reset returns the resolver to Idle. Called on sign-out.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token++ // orphan any in-flight decision
	r.inFlight = false
	r.principalID = ""
	r.lastKnown = Flags{}
	r.state = RoleState{Phase: PhaseIdle}
}

// Resolve determines capability flags for the principal and blocks until a
// decision exists (lookup result, failure fallback, or timeout fallback).
// A nil principal resets to Idle with both flags false. A call that overlaps
// an in-flight resolution for the same principal joins it instead of
// starting a duplicate lookup; any other overlapping call gets the last
// known flags.
func (r *Resolver) Resolve(ctx context.Context, principal *gateway.Principal) Flags {
	if principal == nil {
		r.Reset()
		return Flags{}
	}

	r.mu.Lock()
	if r.inFlight {
		if r.principalID == principal.ID {
			done := r.done
			r.mu.Unlock()
			<-done
			r.mu.Lock()
			flags := r.lastKnown
			r.mu.Unlock()
			return flags
		}
		flags := r.lastKnown
		r.mu.Unlock()
		return flags
	}

	r.token++
	token := r.token
	done := make(chan struct{})
	r.inFlight = true
	r.principalID = principal.ID
	r.done = done
	r.state.IsLoading = true
	r.state.Phase = PhaseResolving
	r.mu.Unlock()

	r.run(ctx, *principal, token, done)

	r.mu.Lock()
	flags := r.lastKnown
	r.mu.Unlock()
	return flags
}

type lookupResult struct {
	flags Flags
	err   error
}

// run drives one resolution to a decision and closes done.
func (r *Resolver) run(ctx context.Context, p gateway.Principal, token uint64, done chan struct{}) {
	defer close(done)

	resCh := make(chan lookupResult, 1)
	go func() {
		flags, err := r.lookup(ctx, p)
		resCh <- lookupResult{flags: flags, err: err}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-resCh:
		r.finish(token, p, res)
	case <-timer.C:
		r.finishTimedOut(token, p)
		// The lookup is not aborted; its eventual answer may still update
		// stored flags, but never the live state for this decision.
		go func() {
			res := <-resCh
			r.absorbLate(token, p, res)
		}()
	}
}

// finish applies a completed lookup. A failed lookup degrades to the
// permissive fallback rather than blocking the principal.
func (r *Resolver) finish(token uint64, p gateway.Principal, res lookupResult) {
	flags := res.flags
	if res.err != nil {
		flags = fallbackFlags()
		r.logger.Warn("session: role lookup failed, applying client fallback",
			zap.String("principal", p.ID),
			zap.Error(res.err))
		if r.notifier != nil {
			r.notifier.Notify(notify.Notification{
				Title:       "Role check failed",
				Description: "We couldn't verify your account role. You have standard access for now.",
				Severity:    notify.SeverityWarning,
			})
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if token != r.token {
		return // superseded by reset or a newer resolution
	}
	r.inFlight = false
	r.lastKnown = flags
	r.state = RoleState{
		IsAdmin:       flags.IsAdmin,
		IsClient:      flags.IsClient,
		IsLoading:     false,
		Phase:         PhaseResolved,
		LastCheckedAt: r.now(),
	}
}

// finishTimedOut applies the timeout decision exactly once for this token.
func (r *Resolver) finishTimedOut(token uint64, p gateway.Principal) {
	r.mu.Lock()
	if token != r.token || !r.inFlight {
		r.mu.Unlock()
		return
	}
	flags := fallbackFlags()
	r.inFlight = false
	r.lastKnown = flags
	r.state = RoleState{
		IsAdmin:       flags.IsAdmin,
		IsClient:      flags.IsClient,
		IsLoading:     false,
		Phase:         PhaseTimedOut,
		LastCheckedAt: r.now(),
	}
	r.mu.Unlock()

	r.logger.Warn("session: role resolution timed out, applying client fallback",
		zap.String("principal", p.ID),
		zap.Duration("timeout", r.timeout))
	if r.notifier != nil {
		r.notifier.Notify(notify.Notification{
			Title:       "Role check delayed",
			Description: "We couldn't verify your account role in time. You have standard access for now.",
			Severity:    notify.SeverityWarning,
		})
	}
}

// absorbLate records a post-timeout lookup result without touching live
// state: the timeout decision sticks for the UI.
func (r *Resolver) absorbLate(token uint64, p gateway.Principal, res lookupResult) {
	if res.err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if token != r.token || r.state.Phase != PhaseTimedOut {
		return
	}
	r.lastKnown = res.flags
	r.logger.Info("session: late role lookup result stored, UI state unchanged",
		zap.String("principal", p.ID),
		zap.Bool("is_admin", res.flags.IsAdmin))
}

// AdminEmailLookup resolves flags by comparing the principal's email
// case-insensitively against the configured administrator address. Every
// authenticated principal is at minimum a client.
func AdminEmailLookup(adminEmail string) Lookup {
	return func(ctx context.Context, p gateway.Principal) (Flags, error) {
		if adminEmail != "" && strings.EqualFold(p.Email, adminEmail) {
			return Flags{IsAdmin: true, IsClient: true}, nil
		}
		return Flags{IsAdmin: false, IsClient: true}, nil
	}
}

// TableLookup consults the backend's capability table, falling back to the
// admin-email comparison when the table holds no row for the principal.
func TableLookup(client gateway.Client, adminEmail string) Lookup {
	emailLookup := AdminEmailLookup(adminEmail)
	return func(ctx context.Context, p gateway.Principal) (Flags, error) {
		rows, err := client.Select(ctx, "user_roles", gateway.Eq("user_id", p.ID))
		if err != nil {
			return Flags{}, err
		}

		flags, _ := emailLookup(ctx, p)
		for _, row := range rows {
			switch row["role"] {
			case "admin":
				flags.IsAdmin = true
				flags.IsClient = true
			case "client":
				flags.IsClient = true
			}
		}
		return flags, nil
	}
}
