// Package order handles order submission from the checkout flow and the
// back-office status transitions on submitted orders.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"labelmart/cart"
	"labelmart/checkout"
)

var (
	// ErrEmptyCart signals a submission with no line items.
	ErrEmptyCart = errors.New("order: cart is empty")
	// ErrInvalidTransition signals a status move the flow does not allow.
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	pool        TxBeginner
	repo        Repository
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo Repository) *Service {
	if repo == nil {
		repo = NewRepository()
	}
	return &Service{
		pool:        pool,
		repo:        repo,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubmitParams is the checkout output handed to the backend.
type SubmitParams struct {
	ClientID string
	Items    []cart.LineItem
	Summary  checkout.Summary
}

// Submit writes the order, its lines and its submission event in one
// transaction. The returned order carries the generated ID and pending status.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (Order, error) {
	if params.ClientID == "" {
		return Order{}, fmt.Errorf("order: missing client id")
	}
	if len(params.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	o := Order{
		ID:       s.idGenerator(),
		ClientID: params.ClientID,
		Status:   StatusPending,
		Subtotal: params.Summary.Subtotal,
		Shipping: params.Summary.Shipping,
		Tax:      params.Summary.Tax,
		Total:    params.Summary.Total,
	}

	items := make([]Item, 0, len(params.Items))
	for _, li := range params.Items {
		items = append(items, Item{
			OrderID:        o.ID,
			ProductID:      li.ProductID,
			SizeID:         li.SizeID,
			QuantityID:     li.QuantityID,
			ProductName:    li.ProductName,
			Dimensions:     li.Dimensions,
			Price:          li.Price,
			QuantityAmount: li.QuantityAmount,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("order: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.InsertOrder(ctx, tx, o); err != nil {
		return Order{}, err
	}
	if err := s.repo.InsertItems(ctx, tx, items); err != nil {
		return Order{}, err
	}
	if err := s.repo.InsertEvent(ctx, tx, o.ID, EventSubmitted, nil, map[string]any{
		"item_count": len(items),
		"total":      o.Total,
	}); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("order: commit tx: %w", err)
	}

	return o, nil
}

// Transition moves an order to the next status, validating the edge while
// the row is locked, and records the change as an order event.
func (s *Service) Transition(ctx context.Context, orderID, actorID string, next Status) error {
	if orderID == "" {
		return fmt.Errorf("order: missing order id")
	}
	if !IsValidStatus(next) {
		return fmt.Errorf("order: unknown status %q", next)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("order: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetStatusForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if !ValidTransition(current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	if err := s.repo.UpdateStatus(ctx, tx, orderID, next, actorID); err != nil {
		return err
	}

	var actorPtr *string
	if actorID != "" {
		actorPtr = &actorID
	}
	if err := s.repo.InsertEvent(ctx, tx, orderID, EventStatusChanged, actorPtr, map[string]any{
		"previous_status": string(current),
		"next_status":     string(next),
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("order: commit transition: %w", err)
	}
	return nil
}

// ListByClient returns the client's orders, newest first.
func (s *Service) ListByClient(ctx context.Context, clientID string) ([]Order, error) {
	if clientID == "" {
		return nil, fmt.Errorf("order: missing client id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("order: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	orders, err := s.repo.ListByClient(ctx, tx, clientID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("order: commit read: %w", err)
	}
	return orders, nil
}
