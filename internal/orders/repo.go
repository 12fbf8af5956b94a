package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaintrack/chaintrack/internal/bulk"
	"github.com/chaintrack/chaintrack/internal/fault"
	"github.com/chaintrack/chaintrack/internal/units"
)

// Repo runs each order operation as one transaction spanning the order row and
// whatever ledger rows the operation touches, so a precondition failure never
// leaves partial state behind.
type Repo struct {
	DB    *pgxpool.Pool
	Units *units.Repo
	Bulk  *bulk.Repo
}

// PlaceBulk debits the seller's bulk stock and creates the order atomically.
// Insufficient stock fails the whole call with nothing applied.
func (r *Repo) PlaceBulk(ctx context.Context, productID, sellerID, buyerID string, qty int) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := r.Bulk.TransferTx(ctx, tx, productID, &sellerID, nil, qty); err != nil {
		return nil, err
	}
	o, err := insertOrder(ctx, tx, productID, sellerID, buyerID, qty, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// PlaceSerialized creates the order without binding units; availability was
// checked point-in-time by the coordinator. requestedUnitIDs carries the
// buyer's serial selection to the seller.
func (r *Repo) PlaceSerialized(ctx context.Context, productID, sellerID, buyerID string, qty int, requestedUnitIDs []string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := insertOrder(ctx, tx, productID, sellerID, buyerID, qty, requestedUnitIDs)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// Confirm is the seller's fulfillment step. Serialized orders bind units here;
// bulk orders were debited at placement so only the status flips.
func (r *Repo) Confirm(ctx context.Context, orderID, sellerID string, unitIDs []string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, serialized, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SellerID != sellerID {
		return nil, fault.Authorization("order %s does not belong to seller %s", orderID, sellerID)
	}
	if o.Status != StatusAwaitingConfirmation {
		return nil, fault.Precondition("order", orderID, string(StatusAwaitingConfirmation), string(o.Status))
	}

	if serialized {
		if len(unitIDs) == 0 {
			unitIDs = o.RequestedUnitIDs
		}
		if len(unitIDs) != o.Quantity {
			return nil, fault.Validation("order %s needs %d units, got %d", orderID, o.Quantity, len(unitIDs))
		}
		if err := r.Units.FulfillOrderTx(ctx, tx, orderID, o.ProductID, unitIDs, sellerID, o.BuyerID); err != nil {
			return nil, err
		}
		o.AssignedUnitIDs = unitIDs
	}

	if err := setStatus(ctx, tx, o, StatusConfirmed, "confirmed_at=now()"); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) ConfirmDelivery(ctx context.Context, orderID, buyerID string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, _, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, fault.Authorization("order %s does not belong to buyer %s", orderID, buyerID)
	}
	if o.Status != StatusConfirmed {
		return nil, fault.Precondition("order", orderID, string(StatusConfirmed), string(o.Status))
	}
	if err := setStatus(ctx, tx, o, StatusDelivered, "delivered_at=now()"); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel hard-deletes an unconfirmed order and symmetrically restores what
// placement consumed: a reverse credit for bulk, nothing for serialized since
// units were never moved before confirmation.
func (r *Repo) Cancel(ctx context.Context, orderID, buyerID string) (*Order, bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	o, serialized, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, false, err
	}
	if o.BuyerID != buyerID {
		return nil, false, fault.Authorization("order %s does not belong to buyer %s", orderID, buyerID)
	}
	if o.Status != StatusAwaitingConfirmation {
		return nil, false, fault.Precondition("order", orderID, string(StatusAwaitingConfirmation), string(o.Status))
	}

	if !serialized {
		if err := r.Bulk.TransferTx(ctx, tx, o.ProductID, nil, &o.SellerID, o.Quantity); err != nil {
			return nil, false, err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return o, serialized, nil
}

func (r *Repo) RequestReturn(ctx context.Context, orderID, buyerID string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, _, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, fault.Authorization("order %s does not belong to buyer %s", orderID, buyerID)
	}
	if o.Status != StatusDelivered {
		return nil, fault.Precondition("order", orderID, string(StatusDelivered), string(o.Status))
	}

	if len(o.AssignedUnitIDs) > 0 {
		if err := r.Units.RequestReturnTx(ctx, tx, o.AssignedUnitIDs); err != nil {
			return nil, err
		}
	}
	if err := setStatus(ctx, tx, o, StatusReturnRequested, ""); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// ResolveReturn settles a requested return. Accepting puts serialized units
// back with the seller or credits the seller's bulk stock; rejecting reverts
// everything to the delivered state.
func (r *Repo) ResolveReturn(ctx context.Context, orderID, sellerID string, accept bool) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, serialized, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SellerID != sellerID {
		return nil, fault.Authorization("order %s does not belong to seller %s", orderID, sellerID)
	}
	if o.Status != StatusReturnRequested {
		return nil, fault.Precondition("order", orderID, string(StatusReturnRequested), string(o.Status))
	}

	if len(o.AssignedUnitIDs) > 0 {
		if err := r.Units.ResolveReturnTx(ctx, tx, o.AssignedUnitIDs, accept); err != nil {
			return nil, err
		}
	}
	if accept {
		if !serialized {
			if err := r.Bulk.TransferTx(ctx, tx, o.ProductID, nil, &o.SellerID, o.Quantity); err != nil {
				return nil, err
			}
		}
		if err := setStatus(ctx, tx, o, StatusReturned, "returned_at=now()"); err != nil {
			return nil, err
		}
	} else {
		if err := setStatus(ctx, tx, o, StatusDelivered, ""); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID).
		Scan(orderFields(&o)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("order", orderID)
	}
	if err != nil {
		return nil, err
	}
	if err := loadAssignedUnits(ctx, r.DB, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) ListForBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE buyer_id=$1 ORDER BY created_at DESC`, buyerID)
}

func (r *Repo) ListForSeller(ctx context.Context, sellerID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE seller_id=$1 ORDER BY created_at DESC`, sellerID)
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(orderFields(&o)...); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const orderColumns = `id, product_id, seller_id, buyer_id, quantity, status, requested_unit_ids,
	created_at, confirmed_at, delivered_at, returned_at`

func orderFields(o *Order) []any {
	return []any{&o.ID, &o.ProductID, &o.SellerID, &o.BuyerID, &o.Quantity, &o.Status,
		&o.RequestedUnitIDs, &o.CreatedAt, &o.ConfirmedAt, &o.DeliveredAt, &o.ReturnedAt}
}

func insertOrder(ctx context.Context, tx pgx.Tx, productID, sellerID, buyerID string, qty int, requested []string) (*Order, error) {
	o := &Order{
		ID:               uuid.NewString(),
		ProductID:        productID,
		SellerID:         sellerID,
		BuyerID:          buyerID,
		Quantity:         qty,
		Status:           StatusAwaitingConfirmation,
		RequestedUnitIDs: requested,
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO orders(id, product_id, seller_id, buyer_id, quantity, status, requested_unit_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		o.ID, o.ProductID, o.SellerID, o.BuyerID, o.Quantity, o.Status, o.RequestedUnitIDs,
	).Scan(&o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// lockOrder locks the order row and reports whether the product is serialized.
// Assigned units are loaded alongside since return flows cascade to them.
func lockOrder(ctx context.Context, tx pgx.Tx, orderID string) (*Order, bool, error) {
	var o Order
	var serialized bool
	fields := append(orderFields(&o), &serialized)
	err := tx.QueryRow(ctx, `
		SELECT `+qualifiedOrderColumns+`, p.is_serialized
		FROM orders o JOIN products p ON p.id = o.product_id
		WHERE o.id=$1
		FOR UPDATE OF o`, orderID).
		Scan(fields...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fault.NotFound("order", orderID)
	}
	if err != nil {
		return nil, false, err
	}
	if err := loadAssignedUnits(ctx, tx, &o); err != nil {
		return nil, false, err
	}
	return &o, serialized, nil
}

const qualifiedOrderColumns = `o.id, o.product_id, o.seller_id, o.buyer_id, o.quantity, o.status,
	o.requested_unit_ids, o.created_at, o.confirmed_at, o.delivered_at, o.returned_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadAssignedUnits(ctx context.Context, q querier, o *Order) error {
	rows, err := q.Query(ctx, `SELECT unit_id FROM order_units WHERE order_id=$1`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		o.AssignedUnitIDs = append(o.AssignedUnitIDs, id)
	}
	return rows.Err()
}

func setStatus(ctx context.Context, tx pgx.Tx, o *Order, to Status, extraSet string) error {
	if !CanTransition(o.Status, to) {
		return fault.Precondition("order", o.ID, "transition to "+string(to), string(o.Status))
	}
	set := "status=$2"
	if extraSet != "" {
		set += ", " + extraSet
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET `+set+` WHERE id=$1`, o.ID, to); err != nil {
		return err
	}
	o.Status = to
	return nil
}
