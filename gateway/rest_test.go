package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*RESTClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewRESTClient(Config{ProjectURL: srv.URL, APIKey: "anon-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestRESTClient_SelectBuildsRequest(t *testing.T) {
	var got *http.Request
	var gotQuery url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		gotQuery = r.URL.Query()
		w.Write([]byte(`[{"id":"p1","name":"Thermal Labels"}]`))
	})

	rows, err := c.Select(context.Background(), "products", Eq("id", "p1"))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Thermal Labels" {
		t.Fatalf("unexpected rows: %v", rows)
	}

	if got.URL.Path != "/rest/v1/products" {
		t.Fatalf("unexpected path %q", got.URL.Path)
	}
	if gotQuery.Get("id") != "eq.p1" {
		t.Fatalf("unexpected filter query %q", gotQuery.Get("id"))
	}
	if got.Header.Get("apikey") != "anon-key" {
		t.Fatal("missing apikey header")
	}
	if got.Header.Get("Authorization") != "Bearer anon-key" {
		t.Fatalf("unexpected authorization %q", got.Header.Get("Authorization"))
	}
}

func TestRESTClient_InsertSendsRepresentationPrefer(t *testing.T) {
	var prefer string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		prefer = r.Header.Get("Prefer")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"r1"}]`))
	})

	rows, err := c.Insert(context.Background(), "user_roles", Row{"user_id": "u1", "role": "client"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if prefer != "return=representation" {
		t.Fatalf("unexpected Prefer header %q", prefer)
	}
	if len(rows) != 1 || rows[0]["id"] != "r1" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestRESTClient_ErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrUnavailable},
	}

	for _, tc := range cases {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.Select(context.Background(), "orders")
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestRESTClient_SignInAdoptsSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/token" {
			if r.URL.Query().Get("grant_type") != "password" {
				t.Errorf("unexpected grant_type %q", r.URL.Query().Get("grant_type"))
			}
			w.Write([]byte(`{"access_token":"tok-1","user":{"id":"u1","email":"a@example.com"}}`))
			return
		}
		// Subsequent table calls must carry the user token.
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("table call missing user token, got %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`[]`))
	})

	sess, err := c.SignIn(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.Principal.Email != "a@example.com" || sess.Principal.ID != "u1" {
		t.Fatalf("unexpected principal %+v", sess.Principal)
	}

	if _, err := c.Select(context.Background(), "orders"); err != nil {
		t.Fatalf("select after sign-in: %v", err)
	}

	current, err := c.Session(context.Background())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if current.AccessToken != "tok-1" {
		t.Fatalf("unexpected token %q", current.AccessToken)
	}
}

func TestRESTClient_SignOutClearsSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/token" {
			w.Write([]byte(`{"access_token":"tok-1","user":{"id":"u1","email":"a@example.com"}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if _, err := c.SignIn(context.Background(), "a@example.com", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, err := c.Session(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRESTClient_RejectsForeignHost(t *testing.T) {
	c, err := NewRESTClient(Config{
		ProjectURL:   "https://project.example.com",
		APIKey:       "anon-key",
		AllowedHosts: []string{"project.example.com"},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := c.ensureAllowed("https://evil.example.org/rest/v1/orders"); err == nil {
		t.Fatal("expected foreign host to be rejected")
	}
}
