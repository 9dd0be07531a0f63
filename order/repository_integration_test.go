package order_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"labelmart/cart"
	"labelmart/checkout"
	"labelmart/order"
	"labelmart/test/infra"
)

// TestOrderLifecycle_Integration runs the full submit + transition path
// against real PostgreSQL. Set TEST_PG_DSN to reuse a database, or set
// ORDER_INTEGRATION=1 to let testcontainers start one.
func TestOrderLifecycle_Integration(t *testing.T) {
	if os.Getenv("TEST_PG_DSN") == "" && os.Getenv("ORDER_INTEGRATION") == "" {
		t.Skip("set TEST_PG_DSN or ORDER_INTEGRATION=1 to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgC, dsn, err := infra.StartPostgres16(ctx, "")
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, os.Getenv("TEST_PG_DSN") != "")
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	svc := order.NewService(pool, nil)

	state := cart.State{
		Items: []cart.LineItem{
			{ProductID: "p1", SizeID: "s1", QuantityID: "q1", ProductName: "Thermal Labels", Dimensions: "40x28mm", Price: 19.90, QuantityAmount: 500},
			{ProductID: "p2", SizeID: "s3", QuantityID: "q2", ProductName: "Shipping Labels", Dimensions: "100x150mm", Price: 34.50, QuantityAmount: 1000},
		},
		Subtotal:  54.40,
		ItemCount: 2,
	}
	summary := checkout.ComputeSummary(state, checkout.DefaultTaxRate, checkout.DefaultShippingCost)

	o, err := svc.Submit(ctx, order.SubmitParams{
		ClientID: "client-42",
		Items:    state.Items,
		Summary:  summary,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.Status != order.StatusPending {
		t.Fatalf("expected pending order, got %s", o.Status)
	}

	// Happy-path transitions.
	for _, next := range []order.Status{order.StatusProcessing, order.StatusShipped, order.StatusCompleted} {
		if err := svc.Transition(ctx, o.ID, "admin-1", next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	// Terminal: no further moves.
	if err := svc.Transition(ctx, o.ID, "admin-1", order.StatusCancelled); !errors.Is(err, order.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from completed, got %v", err)
	}

	orders, err := svc.ListByClient(ctx, "client-42")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 1 || orders[0].Status != order.StatusCompleted {
		t.Fatalf("unexpected orders %+v", orders)
	}

	// Line items and the event trail landed with the order.
	var itemCount, eventCount int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM order_items WHERE order_id = $1`, o.ID).Scan(&itemCount); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if itemCount != 2 {
		t.Fatalf("expected 2 items, got %d", itemCount)
	}
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM order_events WHERE order_id = $1`, o.ID).Scan(&eventCount); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 4 { // submitted + 3 status changes
		t.Fatalf("expected 4 events, got %d", eventCount)
	}

	// Unknown order surfaces the sentinel.
	if err := svc.Transition(ctx, "00000000-0000-0000-0000-000000000000", "admin-1", order.StatusProcessing); !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
