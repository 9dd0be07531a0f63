// Package authflow orchestrates registration, sign-in, sign-out and password
// reset against the hosted auth platform, presenting one consistent outcome
// to the UI regardless of which underlying path succeeded.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"labelmart/gateway"
	"labelmart/localstore"
	"labelmart/notify"
	"labelmart/session"
)

var (
	// ErrMissingFields signals required registration fields were not supplied.
	ErrMissingFields = errors.New("authflow: email and password are required")
	// ErrWeakPassword signals the password is below the platform minimum.
	ErrWeakPassword = errors.New("authflow: password must be at least 6 characters")
	// ErrInvalidCredentials is the generic sign-in failure. Backend error
	// detail is not stable and is never parsed for control flow.
	ErrInvalidCredentials = errors.New("authflow: invalid email or password")
)

// RoleResolver is the slice of the session resolver the controller needs.
type RoleResolver interface {
	Resolve(ctx context.Context, p *gateway.Principal) session.Flags
	Reset()
}

// Profile carries optional registration metadata.
type Profile struct {
	FullName string
	Company  string
	Phone    string
}

// assignStrategy is one idempotent attempt at granting the client
// capability. Strategies run in order until the first success.
type assignStrategy struct {
	name string
	fn   func(ctx context.Context, userID string) error
}

// Controller coordinates the auth flows. Every backend call is wrapped so a
// failure becomes a user-facing message, never an uncaught error in the UI.
type Controller struct {
	client     gateway.Client
	resolver   RoleResolver
	storage    localstore.Store
	notifier   notify.Notifier
	logger     *zap.Logger
	strategies []assignStrategy
}

func NewController(client gateway.Client, resolver RoleResolver, storage localstore.Store, notifier notify.Notifier, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		client:   client,
		resolver: resolver,
		storage:  storage,
		notifier: notifier,
		logger:   logger,
	}
	c.strategies = []assignStrategy{
		{name: "capability-table insert", fn: c.assignByInsert},
		{name: "rpc", fn: c.assignByRPC},
		{name: "ensure helper", fn: c.assignByEnsure},
	}
	return c
}

// SignIn authenticates the principal and triggers role resolution.
func (c *Controller) SignIn(ctx context.Context, email, password string) (gateway.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return gateway.Session{}, ErrMissingFields
	}

	sess, err := c.client.SignIn(ctx, email, password)
	if err != nil {
		c.logger.Info("authflow: sign in rejected", zap.Error(err))
		c.notify("Sign in failed", "Check your email and password and try again.", notify.SeverityDestructive)
		return gateway.Session{}, ErrInvalidCredentials
	}

	if c.resolver != nil {
		c.resolver.Resolve(ctx, &sess.Principal)
	}
	return sess, nil
}

// SignUp creates the principal, then attempts to grant the client capability
// through the ordered fallback chain. Account creation and role assignment
// are decoupled: if every assignment path fails the registration still
// succeeds, with a non-blocking warning, since a missing role is recoverable.
func (c *Controller) SignUp(ctx context.Context, email, password string, profile Profile) (gateway.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return gateway.Session{}, ErrMissingFields
	}
	if len(password) < 6 {
		return gateway.Session{}, ErrWeakPassword
	}

	meta := map[string]any{}
	if profile.FullName != "" {
		meta["full_name"] = profile.FullName
	}
	if profile.Company != "" {
		meta["company"] = profile.Company
	}
	if profile.Phone != "" {
		meta["phone"] = profile.Phone
	}

	sess, err := c.client.SignUp(ctx, email, password, meta)
	if err != nil {
		c.notify("Registration failed", "We couldn't create your account. Please try again.", notify.SeverityDestructive)
		return gateway.Session{}, fmt.Errorf("authflow: sign up: %w", err)
	}

	if err := c.assignClientRole(ctx, sess.Principal.ID); err != nil {
		c.logger.Warn("authflow: all role assignment paths failed",
			zap.String("user", sess.Principal.ID),
			zap.Error(err))
		c.notify("Account created",
			"Your account is ready, but we couldn't finish setting up access. Contact support if anything looks locked.",
			notify.SeverityWarning)
	} else {
		c.notify("Account created", "Welcome! You can start ordering right away.", notify.SeverityNormal)
	}

	if c.resolver != nil {
		c.resolver.Resolve(ctx, &sess.Principal)
	}
	return sess, nil
}

// SignOut ends the session and clears all session-derived local state.
func (c *Controller) SignOut(ctx context.Context) error {
	err := c.client.SignOut(ctx)

	if c.resolver != nil {
		c.resolver.Reset()
	}
	if c.storage != nil {
		if rmErr := c.storage.Remove(localstore.KeyMustChangePassword); rmErr != nil {
			c.logger.Warn("authflow: clear password flag", zap.Error(rmErr))
		}
	}

	if err != nil {
		c.notify("Sign out failed", "Your local session was cleared anyway.", notify.SeverityWarning)
		return fmt.Errorf("authflow: sign out: %w", err)
	}
	return nil
}

// ResetPassword triggers the platform's reset email. The outcome never
// reveals whether the address is registered.
func (c *Controller) ResetPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrMissingFields
	}

	if err := c.client.ResetPassword(ctx, email); err != nil {
		c.notify("Password reset failed", "We couldn't send a reset email. Please try again.", notify.SeverityDestructive)
		return fmt.Errorf("authflow: reset password: %w", err)
	}

	c.notify("Check your inbox", "If an account exists for that address, a reset link is on its way.", notify.SeverityNormal)
	return nil
}

// assignClientRole walks the fallback chain, stopping at the first success.
func (c *Controller) assignClientRole(ctx context.Context, userID string) error {
	var lastErr error
	for _, s := range c.strategies {
		if err := s.fn(ctx, userID); err != nil {
			c.logger.Info("authflow: role assignment path failed",
				zap.String("strategy", s.name),
				zap.Error(err))
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (c *Controller) assignByInsert(ctx context.Context, userID string) error {
	_, err := c.client.Insert(ctx, "user_roles", gateway.Row{"user_id": userID, "role": "client"})
	return err
}

func (c *Controller) assignByRPC(ctx context.Context, userID string) error {
	return c.client.RPC(ctx, "assign_client_role", map[string]any{"user_id": userID})
}

// assignByEnsure re-checks before inserting so it stays idempotent even if a
// prior path half-succeeded.
func (c *Controller) assignByEnsure(ctx context.Context, userID string) error {
	rows, err := c.client.Select(ctx, "user_roles",
		gateway.Eq("user_id", userID), gateway.Eq("role", "client"))
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	_, err = c.client.Insert(ctx, "user_roles", gateway.Row{"user_id": userID, "role": "client"})
	return err
}

func (c *Controller) notify(title, description string, severity notify.Severity) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(notify.Notification{Title: title, Description: description, Severity: severity})
}
