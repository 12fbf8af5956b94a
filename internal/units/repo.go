package units

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaintrack/chaintrack/internal/catalog"
	"github.com/chaintrack/chaintrack/internal/fault"
	"github.com/chaintrack/chaintrack/internal/identity"
)

// Hasher derives the per-unit authenticity token at manufacture time.
type Hasher interface {
	DeriveHash(serialNumber, manufacturerID string) string
}

type Repo struct {
	DB     *pgxpool.Pool
	Hasher Hasher
}

// CreateBatch inserts one IN_FACTORY unit per serial. The whole batch fails if
// any serial collides with an existing unit of the same product.
func (r *Repo) CreateBatch(ctx context.Context, product *catalog.Product, manufacturerID string, serials []string) ([]Unit, error) {
	if !product.IsSerialized {
		return nil, fault.Validation("product %s is not serialized", product.ID)
	}
	if product.ManufacturerID != manufacturerID {
		return nil, fault.Authorization("product %s does not belong to manufacturer %s", product.ID, manufacturerID)
	}
	if len(serials) == 0 {
		return nil, fault.Validation("empty serial list")
	}
	seen := map[string]bool{}
	for _, s := range serials {
		if s == "" {
			return nil, fault.Validation("empty serial number")
		}
		if seen[s] {
			return nil, fault.Validation("duplicate serial %s in batch", s)
		}
		seen[s] = true
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT serial_number FROM product_units
		WHERE product_id=$1 AND serial_number = ANY($2::text[])`,
		product.ID, serials)
	if err != nil {
		return nil, err
	}
	var taken []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		taken = append(taken, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, fault.Validation("serials already registered: %v", taken)
	}

	out := make([]Unit, 0, len(serials))
	for _, s := range serials {
		u := Unit{
			ID:             uuid.NewString(),
			ProductID:      product.ID,
			SerialNumber:   s,
			Status:         StatusInFactory,
			ManufacturerID: manufacturerID,
			AuthHash:       r.Hasher.DeriveHash(s, manufacturerID),
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO product_units(id, product_id, serial_number, status, manufacturer_id, auth_hash)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING manufactured_at`,
			u.ID, u.ProductID, u.SerialNumber, u.Status, u.ManufacturerID, u.AuthHash,
		).Scan(&u.ManufacturedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// DispatchToSeller moves IN_FACTORY units to the seller. All-or-nothing: one
// ineligible unit aborts the whole call.
func (r *Repo) DispatchToSeller(ctx context.Context, unitIDs []string, sellerID string) ([]Unit, error) {
	if len(unitIDs) == 0 {
		return nil, fault.Validation("no units to dispatch")
	}
	if sellerID == "" {
		return nil, fault.Validation("empty seller id")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	locked, err := lockUnits(ctx, tx, unitIDs)
	if err != nil {
		return nil, err
	}
	for _, u := range locked {
		if u.Status != StatusInFactory {
			return nil, fault.Precondition("unit", u.ID, string(StatusInFactory), string(u.Status))
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE product_units
		SET status=$2, seller_id=$3, dispatched_at=now()
		WHERE id = ANY($1::uuid[])`,
		unitIDs, StatusAtSeller, sellerID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return locked, nil
}

// FulfillOrderTx binds units to an order inside the caller's transaction.
// Every unit must be sellable (AT_SELLER or RETURNED_TO_SELLER) and owned by
// the order's seller.
func (r *Repo) FulfillOrderTx(ctx context.Context, tx pgx.Tx, orderID, productID string, unitIDs []string, sellerID, buyerID string) error {
	locked, err := lockUnits(ctx, tx, unitIDs)
	if err != nil {
		return err
	}
	for _, u := range locked {
		if u.ProductID != productID {
			return fault.Validation("unit %s belongs to product %s, not %s", u.ID, u.ProductID, productID)
		}
		if !u.Status.Sellable() {
			return fault.Precondition("unit", u.ID, "sellable", string(u.Status))
		}
		if u.SellerID == nil || *u.SellerID != sellerID {
			return fault.Authorization("unit %s is not held by seller %s", u.ID, sellerID)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE product_units
		SET status=$2, buyer_id=$3, sold_at=now()
		WHERE id = ANY($1::uuid[])`,
		unitIDs, StatusSoldToBuyer, buyerID); err != nil {
		return err
	}
	for _, id := range unitIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_units(order_id, unit_id) VALUES ($1, $2)`,
			orderID, id); err != nil {
			return err
		}
	}
	return nil
}

// RequestReturnTx flips SOLD_TO_BUYER units to RETURN_REQUESTED.
func (r *Repo) RequestReturnTx(ctx context.Context, tx pgx.Tx, unitIDs []string) error {
	return r.transitionTx(ctx, tx, unitIDs, StatusSoldToBuyer, StatusReturnRequested, "")
}

// ResolveReturnTx settles a pending return: accepted units land back with the
// seller, rejected ones revert to the buyer.
func (r *Repo) ResolveReturnTx(ctx context.Context, tx pgx.Tx, unitIDs []string, accept bool) error {
	if accept {
		return r.transitionTx(ctx, tx, unitIDs, StatusReturnRequested, StatusReturnedToSeller, "returned_at=now(), buyer_id=NULL")
	}
	return r.transitionTx(ctx, tx, unitIDs, StatusReturnRequested, StatusSoldToBuyer, "")
}

func (r *Repo) RequestReturn(ctx context.Context, unitIDs []string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error { return r.RequestReturnTx(ctx, tx, unitIDs) })
}

func (r *Repo) ResolveReturn(ctx context.Context, unitIDs []string, accept bool) error {
	return r.inTx(ctx, func(tx pgx.Tx) error { return r.ResolveReturnTx(ctx, tx, unitIDs, accept) })
}

// RecallDefective pulls seller-held units out of circulation for good.
func (r *Repo) RecallDefective(ctx context.Context, unitIDs []string) ([]Unit, error) {
	if len(unitIDs) == 0 {
		return nil, fault.Validation("no units to recall")
	}
	var locked []Unit
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		locked, err = lockUnits(ctx, tx, unitIDs)
		if err != nil {
			return err
		}
		for _, u := range locked {
			if !CanTransition(u.Status, StatusReturnedDefective) {
				return fault.Precondition("unit", u.ID, "AT_SELLER or RETURNED_TO_SELLER", string(u.Status))
			}
		}
		_, err = tx.Exec(ctx, `
			UPDATE product_units SET status=$2, returned_at=now()
			WHERE id = ANY($1::uuid[])`,
			unitIDs, StatusReturnedDefective)
		return err
	})
	if err != nil {
		return nil, err
	}
	return locked, nil
}

// DeleteUnit removes a unit that never left the factory.
func (r *Repo) DeleteUnit(ctx context.Context, unitID string) (*Unit, error) {
	var deleted Unit
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		locked, err := lockUnits(ctx, tx, []string{unitID})
		if err != nil {
			return err
		}
		if locked[0].Status != StatusInFactory {
			return fault.Precondition("unit", unitID, string(StatusInFactory), string(locked[0].Status))
		}
		deleted = locked[0]
		_, err = tx.Exec(ctx, `DELETE FROM product_units WHERE id=$1`, unitID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// AvailableCount counts units that are available stock from the owner's point
// of view: factory stock for manufacturers, sellable stock for sellers.
func (r *Repo) AvailableCount(ctx context.Context, productID, ownerID string, role identity.Role) (int, error) {
	var n int
	var err error
	switch role {
	case identity.RoleManufacturer:
		err = r.DB.QueryRow(ctx, `
			SELECT COUNT(*) FROM product_units
			WHERE product_id=$1 AND manufacturer_id=$2 AND status=$3`,
			productID, ownerID, StatusInFactory).Scan(&n)
	case identity.RoleSeller:
		err = r.DB.QueryRow(ctx, `
			SELECT COUNT(*) FROM product_units
			WHERE product_id=$1 AND seller_id=$2 AND status = ANY($3::text[])`,
			productID, ownerID, []string{string(StatusAtSeller), string(StatusReturnedToSeller)}).Scan(&n)
	default:
		return 0, fault.Validation("role %s has no unit stock", role)
	}
	return n, err
}

func (r *Repo) ListForOwner(ctx context.Context, ownerID string, role identity.Role) ([]Unit, error) {
	var where string
	switch role {
	case identity.RoleManufacturer:
		where = "manufacturer_id=$1"
	case identity.RoleSeller:
		where = "seller_id=$1"
	case identity.RoleBuyer:
		where = "buyer_id=$1"
	default:
		return nil, fault.Validation("unknown role %s", role)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT `+unitColumns+` FROM product_units WHERE `+where+` ORDER BY manufactured_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

// FindBySerial returns every unit carrying the serial. Serials are unique per
// product, not globally, so verification checks each candidate.
func (r *Repo) FindBySerial(ctx context.Context, serial string) ([]Unit, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+unitColumns+` FROM product_units WHERE serial_number=$1`, serial)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

func (r *Repo) Get(ctx context.Context, unitID string) (*Unit, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+unitColumns+` FROM product_units WHERE id=$1`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	us, err := scanUnits(rows)
	if err != nil {
		return nil, err
	}
	if len(us) == 0 {
		return nil, fault.NotFound("unit", unitID)
	}
	return &us[0], nil
}

const unitColumns = `id, product_id, serial_number, status, manufacturer_id, seller_id, buyer_id,
	auth_hash, manufactured_at, dispatched_at, sold_at, returned_at`

func scanUnits(rows pgx.Rows) ([]Unit, error) {
	var out []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.ProductID, &u.SerialNumber, &u.Status, &u.ManufacturerID,
			&u.SellerID, &u.BuyerID, &u.AuthHash, &u.ManufacturedAt,
			&u.DispatchedAt, &u.SoldAt, &u.ReturnedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// uniqueIDs rejects repeated ids; ANY($1) would collapse them and a
// two-unit request could lock one row while passing the not-found check.
func uniqueIDs(ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fault.Validation("duplicate unit id %s", id)
		}
		seen[id] = true
	}
	return nil
}

// lockUnits row-locks the units and fails if any id is unknown.
func lockUnits(ctx context.Context, tx pgx.Tx, unitIDs []string) ([]Unit, error) {
	if err := uniqueIDs(unitIDs); err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT `+unitColumns+` FROM product_units
		WHERE id = ANY($1::uuid[]) FOR UPDATE`, unitIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	locked, err := scanUnits(rows)
	if err != nil {
		return nil, err
	}
	if len(locked) != len(unitIDs) {
		found := map[string]bool{}
		for _, u := range locked {
			found[u.ID] = true
		}
		for _, id := range unitIDs {
			if !found[id] {
				return nil, fault.NotFound("unit", id)
			}
		}
	}
	return locked, nil
}

func (r *Repo) transitionTx(ctx context.Context, tx pgx.Tx, unitIDs []string, from, to Status, extraSet string) error {
	if len(unitIDs) == 0 {
		return fault.Validation("no units given")
	}
	locked, err := lockUnits(ctx, tx, unitIDs)
	if err != nil {
		return err
	}
	for _, u := range locked {
		if u.Status != from {
			return fault.Precondition("unit", u.ID, string(from), string(u.Status))
		}
	}
	set := "status=$2"
	if extraSet != "" {
		set += ", " + extraSet
	}
	_, err = tx.Exec(ctx, fmt.Sprintf(`UPDATE product_units SET %s WHERE id = ANY($1::uuid[])`, set), unitIDs, to)
	return err
}

func (r *Repo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
