package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"labelmart/gateway"
	"labelmart/notify"
)

var (
	adminPrincipal  = gateway.Principal{ID: "u-admin", Email: "Admin@Example.com"}
	clientPrincipal = gateway.Principal{ID: "u-client", Email: "shopper@example.com"}
)

func TestAdminEmailLookup(t *testing.T) {
	lookup := AdminEmailLookup("admin@example.com")

	flags, err := lookup(context.Background(), adminPrincipal)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !flags.IsAdmin || !flags.IsClient {
		t.Fatalf("admin email must grant both flags, got %+v", flags)
	}

	flags, _ = lookup(context.Background(), clientPrincipal)
	if flags.IsAdmin || !flags.IsClient {
		t.Fatalf("non-admin must be client only, got %+v", flags)
	}
}

func TestResolver_NoPrincipalIsIdle(t *testing.T) {
	r := NewResolver(AdminEmailLookup("admin@example.com"), nil, nil)

	flags := r.Resolve(context.Background(), nil)
	if flags.IsAdmin || flags.IsClient {
		t.Fatalf("expected no capabilities, got %+v", flags)
	}

	state := r.State()
	if state.Phase != PhaseIdle || state.IsLoading {
		t.Fatalf("expected idle state, got %+v", state)
	}
}

func TestResolver_ResolvesAdminAndClient(t *testing.T) {
	r := NewResolver(AdminEmailLookup("admin@example.com"), nil, nil)

	flags := r.Resolve(context.Background(), &adminPrincipal)
	if !flags.IsAdmin || !flags.IsClient {
		t.Fatalf("expected admin flags, got %+v", flags)
	}
	state := r.State()
	if state.Phase != PhaseResolved || state.IsLoading {
		t.Fatalf("expected resolved state, got %+v", state)
	}
	if state.LastCheckedAt.IsZero() {
		t.Fatal("expected LastCheckedAt to be set")
	}

	r.Reset()
	flags = r.Resolve(context.Background(), &clientPrincipal)
	if flags.IsAdmin || !flags.IsClient {
		t.Fatalf("expected client-only flags, got %+v", flags)
	}
}

func TestResolver_LookupFailureFallsBackToClient(t *testing.T) {
	failing := func(ctx context.Context, p gateway.Principal) (Flags, error) {
		return Flags{}, errors.New("backend down")
	}
	rec := &notify.Recorder{}
	r := NewResolver(failing, rec, nil)

	flags := r.Resolve(context.Background(), &clientPrincipal)
	if flags.IsAdmin || !flags.IsClient {
		t.Fatalf("expected client fallback, got %+v", flags)
	}
	if state := r.State(); state.IsLoading {
		t.Fatal("loading must clear after a failed lookup")
	}
	if len(rec.Notifications) != 1 || rec.Notifications[0].Severity != notify.SeverityWarning {
		t.Fatalf("expected one warning notification, got %+v", rec.Notifications)
	}
}

func TestResolver_TimeoutAppliesFallbackExactlyOnce(t *testing.T) {
	never := func(ctx context.Context, p gateway.Principal) (Flags, error) {
		select {} // backend never responds
	}
	rec := &notify.Recorder{}
	r := NewResolver(never, rec, nil).WithTimeout(30 * time.Millisecond)

	flags := r.Resolve(context.Background(), &clientPrincipal)
	if flags.IsAdmin || !flags.IsClient {
		t.Fatalf("expected client fallback, got %+v", flags)
	}

	state := r.State()
	if state.Phase != PhaseTimedOut {
		t.Fatalf("expected TimedOut phase, got %+v", state)
	}
	if state.IsLoading {
		t.Fatal("loading must clear on timeout")
	}
	if len(rec.Notifications) != 1 {
		t.Fatalf("fallback must apply exactly once, got %d notifications", len(rec.Notifications))
	}
}

func TestResolver_LateResultDoesNotTouchLiveState(t *testing.T) {
	release := make(chan struct{})
	slow := func(ctx context.Context, p gateway.Principal) (Flags, error) {
		<-release
		return Flags{IsAdmin: true, IsClient: true}, nil
	}
	r := NewResolver(slow, nil, nil).WithTimeout(20 * time.Millisecond)

	flags := r.Resolve(context.Background(), &adminPrincipal)
	if flags.IsAdmin {
		t.Fatalf("timeout decision must not grant admin, got %+v", flags)
	}

	// Let the lookup answer after the decision.
	close(release)
	deadline := time.After(time.Second)
	for {
		if got := r.LastKnown(); got.IsAdmin {
			break
		}
		select {
		case <-deadline:
			t.Fatal("late result never absorbed into stored flags")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Stored flags moved; live state sticks with the timeout decision.
	state := r.State()
	if state.Phase != PhaseTimedOut || state.IsAdmin {
		t.Fatalf("live state must keep the timeout decision, got %+v", state)
	}
}

func TestResolver_CoalescesConcurrentResolves(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	lookup := func(ctx context.Context, p gateway.Principal) (Flags, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return Flags{IsAdmin: false, IsClient: true}, nil
	}
	r := NewResolver(lookup, nil, nil).WithTimeout(5 * time.Second)

	results := make([]Flags, 4)
	var g errgroup.Group
	g.Go(func() error {
		results[0] = r.Resolve(context.Background(), &clientPrincipal)
		return nil
	})

	<-entered // first resolution is in flight
	for i := 1; i < 4; i++ {
		g.Go(func() error {
			results[i] = r.Resolve(context.Background(), &clientPrincipal)
			return nil
		})
	}
	// Give the joiners a moment to hit the in-flight guard, then answer.
	time.Sleep(50 * time.Millisecond)
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatalf("resolve group: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single underlying lookup, got %d", got)
	}
	for i, flags := range results {
		if flags != (Flags{IsAdmin: false, IsClient: true}) {
			t.Fatalf("caller %d got %+v", i, flags)
		}
	}
}

func TestResolver_ResetClearsState(t *testing.T) {
	r := NewResolver(AdminEmailLookup("admin@example.com"), nil, nil)
	r.Resolve(context.Background(), &adminPrincipal)

	r.Reset()

	state := r.State()
	if state.Phase != PhaseIdle || state.IsAdmin || state.IsClient {
		t.Fatalf("expected idle state after reset, got %+v", state)
	}
	if r.LastKnown() != (Flags{}) {
		t.Fatal("expected stored flags cleared")
	}
}

func TestTableLookup(t *testing.T) {
	backend := gateway.NewLocalBackend("")
	ctx := context.Background()
	backend.Insert(ctx, "user_roles", gateway.Row{"user_id": "u-client", "role": "client"})
	backend.Insert(ctx, "user_roles", gateway.Row{"user_id": "u-9", "role": "admin"})

	lookup := TableLookup(backend, "admin@example.com")

	flags, err := lookup(ctx, clientPrincipal)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if flags.IsAdmin || !flags.IsClient {
		t.Fatalf("unexpected flags %+v", flags)
	}

	flags, _ = lookup(ctx, gateway.Principal{ID: "u-9", Email: "ops@example.com"})
	if !flags.IsAdmin {
		t.Fatalf("expected admin from capability table, got %+v", flags)
	}

	// No row: email comparison decides.
	flags, _ = lookup(ctx, adminPrincipal)
	if !flags.IsAdmin || !flags.IsClient {
		t.Fatalf("expected admin from email fallback, got %+v", flags)
	}
}
