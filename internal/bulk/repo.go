package bulk

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaintrack/chaintrack/internal/fault"
)

type Stock struct {
	ProductID string `json:"product_id"`
	OwnerID   string `json:"owner_id"`
	Quantity  int    `json:"quantity"`
}

type Repo struct{ DB *pgxpool.Pool }

// Transfer is the single fungible-stock primitive. A nil from credits stock
// into existence (manufacturer production), a nil to drops it out of the
// traceable system (sale to a buyer). Debit fails whole when the source row
// holds less than qty; nothing is partially applied.
func (r *Repo) Transfer(ctx context.Context, productID string, from, to *string, qty int) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.TransferTx(ctx, tx, productID, from, to, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TransferTx runs the transfer inside the caller's transaction so order
// placement and cancellation can move stock and the order row atomically.
func (r *Repo) TransferTx(ctx context.Context, tx pgx.Tx, productID string, from, to *string, qty int) error {
	if qty <= 0 {
		return fault.Validation("quantity must be positive, got %d", qty)
	}
	if from == nil && to == nil {
		return fault.Validation("transfer needs at least one endpoint")
	}

	if from != nil {
		var have int
		err := tx.QueryRow(ctx, `
			SELECT quantity FROM bulk_stock
			WHERE product_id=$1 AND owner_id=$2 FOR UPDATE`,
			productID, *from).Scan(&have)
		if errors.Is(err, pgx.ErrNoRows) {
			return fault.InsufficientStock("bulk_stock", productID, qty, 0)
		}
		if err != nil {
			return err
		}
		if have < qty {
			return fault.InsufficientStock("bulk_stock", productID, qty, have)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE bulk_stock SET quantity = quantity - $3
			WHERE product_id=$1 AND owner_id=$2`,
			productID, *from, qty); err != nil {
			return err
		}
	}

	if to != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO bulk_stock(product_id, owner_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, owner_id) DO UPDATE SET quantity = bulk_stock.quantity + $3`,
			productID, *to, qty); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) Quantity(ctx context.Context, productID, ownerID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT quantity FROM bulk_stock WHERE product_id=$1 AND owner_id=$2`,
		productID, ownerID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (r *Repo) ListForOwner(ctx context.Context, ownerID string) ([]Stock, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, owner_id, quantity FROM bulk_stock
		WHERE owner_id=$1 AND quantity > 0 ORDER BY product_id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stock
	for rows.Next() {
		var s Stock
		if err := rows.Scan(&s.ProductID, &s.OwnerID, &s.Quantity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
