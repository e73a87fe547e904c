package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace-core/internal/postgres"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusConflict means the row moved on between read and update.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type Repo struct{ DB postgres.Querier }

func (r *Repo) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get status %s: %w", orderID, err)
	}
	return Status(s), nil
}

// UpdateStatus moves an order from -> to. The WHERE clause on the old
// status makes concurrent updates lose with ErrStatusConflict instead of
// overwriting each other.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`, orderID, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update status %s: %w", orderID, err)
	}
	if ct.RowsAffected() != 1 {
		return ErrStatusConflict
	}
	return nil
}
