package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrOrderNotFound signals that the order does not exist.
	ErrOrderNotFound = errors.New("order: not found")
)

// Repository defines the data access required by the service. All writes
// run inside a caller-owned transaction.
type Repository interface {
	InsertOrder(ctx context.Context, tx pgx.Tx, o Order) error
	InsertItems(ctx context.Context, tx pgx.Tx, items []Item) error
	InsertEvent(ctx context.Context, tx pgx.Tx, orderID, eventType string, actorID *string, payload map[string]any) error
	GetStatusForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (Status, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID string, next Status, actorID string) error
	ListByClient(ctx context.Context, tx pgx.Tx, clientID string) ([]Order, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

func (r *PGRepository) InsertOrder(ctx context.Context, tx pgx.Tx, o Order) error {
	const insertSQL = `
		INSERT INTO orders (id, client_id, status, subtotal, shipping, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(ctx, insertSQL,
		o.ID, o.ClientID, o.Status, o.Subtotal, o.Shipping, o.Tax, o.Total); err != nil {
		return fmt.Errorf("order: insert order: %w", err)
	}
	return nil
}

func (r *PGRepository) InsertItems(ctx context.Context, tx pgx.Tx, items []Item) error {
	const insertSQL = `
		INSERT INTO order_items (order_id, product_id, size_id, quantity_id, product_name, dimensions, price, quantity_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, item := range items {
		if _, err := tx.Exec(ctx, insertSQL,
			item.OrderID, item.ProductID, item.SizeID, item.QuantityID,
			item.ProductName, item.Dimensions, item.Price, item.QuantityAmount); err != nil {
			return fmt.Errorf("order: insert item: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) InsertEvent(ctx context.Context, tx pgx.Tx, orderID, eventType string, actorID *string, payload map[string]any) error {
	const insertSQL = `
		INSERT INTO order_events (order_id, type, actor_id, payload)
		VALUES ($1, $2, $3, $4::jsonb)
	`
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("order: encode event payload: %w", err)
	}
	if _, err := tx.Exec(ctx, insertSQL, orderID, eventType, actorID, string(encoded)); err != nil {
		return fmt.Errorf("order: insert event: %w", err)
	}
	return nil
}

func (r *PGRepository) GetStatusForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (Status, error) {
	var status Status
	err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("order: fetch status: %w", err)
	}
	return status, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID string, next Status, actorID string) error {
	const updateSQL = `
		UPDATE orders
		SET status = $1, status_updated_by = $2, updated_at = now()
		WHERE id = $3
	`
	if _, err := tx.Exec(ctx, updateSQL, next, actorID, orderID); err != nil {
		return fmt.Errorf("order: update status: %w", err)
	}
	return nil
}

func (r *PGRepository) ListByClient(ctx context.Context, tx pgx.Tx, clientID string) ([]Order, error) {
	const selectSQL = `
		SELECT id, client_id, status, subtotal, shipping, tax, total, created_at, updated_at
		FROM orders
		WHERE client_id = $1
		ORDER BY created_at DESC
	`
	rows, err := tx.Query(ctx, selectSQL, clientID)
	if err != nil {
		return nil, fmt.Errorf("order: list by client: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.ClientID, &o.Status,
			&o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("order: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order: list by client: %w", err)
	}
	return out, nil
}
