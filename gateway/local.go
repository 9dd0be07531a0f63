package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LocalBackend is an in-process Client for development and tests. Credentials
// are bcrypt-hashed and tokens are real signed JWTs, so code exercising the
// gateway behaves the same against it as against the hosted platform.
type LocalBackend struct {
	jwtSecret []byte

	mu      sync.Mutex
	users   map[string]localUser // keyed by lowercased email
	tables  map[string][]Row
	rpcs    map[string]func(args map[string]any) error
	session *Session
}

type localUser struct {
	id           string
	email        string
	passwordHash []byte
	meta         map[string]any
}

func NewLocalBackend(jwtSecret string) *LocalBackend {
	if jwtSecret == "" {
		jwtSecret = "local-dev-secret"
	}
	return &LocalBackend{
		jwtSecret: []byte(jwtSecret),
		users:     make(map[string]localUser),
		tables:    make(map[string][]Row),
		rpcs:      make(map[string]func(args map[string]any) error),
	}
}

// RegisterRPC installs a named procedure. Unknown procedures return ErrNotFound.
func (b *LocalBackend) RegisterRPC(name string, fn func(args map[string]any) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rpcs[name] = fn
}

func (b *LocalBackend) Select(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Row
	for _, row := range b.tables[table] {
		if matchesAll(row, filters) {
			out = append(out, cloneRow(row))
		}
	}
	return out, nil
}

func (b *LocalBackend) Insert(ctx context.Context, table string, row Row) ([]Row, error) {
	if table == "" {
		return nil, fmt.Errorf("gateway: table is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := cloneRow(row)
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.NewString()
	}
	b.tables[table] = append(b.tables[table], stored)
	return []Row{cloneRow(stored)}, nil
}

func (b *LocalBackend) Update(ctx context.Context, table string, row Row, filters ...Filter) ([]Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Row
	for i, existing := range b.tables[table] {
		if !matchesAll(existing, filters) {
			continue
		}
		for k, v := range row {
			b.tables[table][i][k] = v
		}
		out = append(out, cloneRow(b.tables[table][i]))
	}
	return out, nil
}

func (b *LocalBackend) Delete(ctx context.Context, table string, filters ...Filter) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.tables[table][:0]
	for _, row := range b.tables[table] {
		if !matchesAll(row, filters) {
			kept = append(kept, row)
		}
	}
	b.tables[table] = kept
	return nil
}

func (b *LocalBackend) RPC(ctx context.Context, fn string, args map[string]any) error {
	b.mu.Lock()
	proc, ok := b.rpcs[fn]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("gateway: rpc %s: %w", fn, ErrNotFound)
	}
	return proc(args)
}

func (b *LocalBackend) SignUp(ctx context.Context, email, password string, meta map[string]any) (Session, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" || password == "" {
		return Session{}, fmt.Errorf("gateway: email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("gateway: hash password: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.users[key]; exists {
		return Session{}, fmt.Errorf("gateway: email already registered")
	}

	user := localUser{
		id:           uuid.NewString(),
		email:        key,
		passwordHash: hash,
		meta:         meta,
	}
	b.users[key] = user

	return b.openSession(user)
}

func (b *LocalBackend) SignIn(ctx context.Context, email, password string) (Session, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.users[key]
	if !ok {
		return Session{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return Session{}, ErrUnauthorized
	}

	return b.openSession(user)
}

func (b *LocalBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = nil
	return nil
}

func (b *LocalBackend) ResetPassword(ctx context.Context, email string) error {
	// No mail delivery locally; succeed without revealing whether the
	// account exists, matching the hosted platform.
	return nil
}

func (b *LocalBackend) Session(ctx context.Context) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, ErrNoSession
	}
	s := *b.session
	return &s, nil
}

// openSession issues a signed token and makes it the current session.
// Caller holds b.mu.
func (b *LocalBackend) openSession(user localUser) (Session, error) {
	claims := jwt.MapClaims{
		"sub":   user.id,
		"email": user.email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.jwtSecret)
	if err != nil {
		return Session{}, fmt.Errorf("gateway: sign token: %w", err)
	}

	session := Session{
		AccessToken: token,
		Principal:   Principal{ID: user.id, Email: user.email},
	}
	b.session = &session
	return session, nil
}

func matchesAll(row Row, filters []Filter) bool {
	for _, f := range filters {
		if f.Op != "" && f.Op != "eq" {
			return false
		}
		v, ok := row[f.Column]
		if !ok || fmt.Sprint(v) != f.Value {
			return false
		}
	}
	return true
}

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
