package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// Append writes a movement row. Duplicate event ids are silently dropped so
// the consumer can replay safely.
func (r *Repo) Append(ctx context.Context, m Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO stock_movements(id, event_id, kind, product_id, from_owner, to_owner, quantity, order_id, unit_ids, moved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id, product_id) DO NOTHING`,
		m.ID, m.EventID, m.Kind, m.ProductID, m.FromOwner, m.ToOwner, m.Quantity, m.OrderID, m.UnitIDs, m.MovedAt)
	return err
}

func (r *Repo) ListForProduct(ctx context.Context, productID string) ([]Movement, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, event_id, kind, product_id, from_owner, to_owner, quantity, order_id, unit_ids, moved_at
		FROM stock_movements WHERE product_id=$1 ORDER BY moved_at`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.EventID, &m.Kind, &m.ProductID, &m.FromOwner, &m.ToOwner,
			&m.Quantity, &m.OrderID, &m.UnitIDs, &m.MovedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
