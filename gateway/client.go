// Package gateway is the client half of the hosted data-and-auth platform
// contract. Every operation is a fallible remote call returning (data, error);
// callers never assume success.
package gateway

import "context"

// Client exposes the platform's table and auth operations. The production
// implementation is RESTClient; LocalBackend serves tests and dev mode.
type Client interface {
	// Table operations. Writes return the affected rows.
	Select(ctx context.Context, table string, filters ...Filter) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) ([]Row, error)
	Update(ctx context.Context, table string, row Row, filters ...Filter) ([]Row, error)
	Delete(ctx context.Context, table string, filters ...Filter) error

	// RPC invokes a named server-side procedure.
	RPC(ctx context.Context, fn string, args map[string]any) error

	// Auth operations. SignIn and SignUp establish the client's current
	// session; SignOut clears it.
	SignUp(ctx context.Context, email, password string, meta map[string]any) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	Session(ctx context.Context) (*Session, error)
}
