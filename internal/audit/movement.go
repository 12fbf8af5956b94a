package audit

import "time"

// Kind labels what a stock movement row records.
type Kind string

const (
	KindManufactured   Kind = "MANUFACTURED"
	KindDispatched     Kind = "DISPATCHED"
	KindRecalled       Kind = "RECALLED"
	KindUnitDeleted    Kind = "UNIT_DELETED"
	KindTransfer       Kind = "TRANSFER"
	KindOrderPlaced    Kind = "ORDER_PLACED"
	KindOrderConfirmed Kind = "ORDER_CONFIRMED"
	KindOrderCancelled Kind = "ORDER_CANCELLED"
	KindReturnAccepted Kind = "RETURN_ACCEPTED"
	KindReturnRejected Kind = "RETURN_REJECTED"
)

// Movement is one append-only audit row. EventID keeps replays idempotent.
type Movement struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Kind      Kind      `json:"kind"`
	ProductID string    `json:"product_id"`
	FromOwner *string   `json:"from_owner,omitempty"`
	ToOwner   *string   `json:"to_owner,omitempty"`
	Quantity  int       `json:"quantity"`
	OrderID   *string   `json:"order_id,omitempty"`
	UnitIDs   []string  `json:"unit_ids,omitempty"`
	MovedAt   time.Time `json:"moved_at"`
}
