package orders

import "time"

type Order struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	SellerID  string `json:"seller_id"`
	BuyerID   string `json:"buyer_id"`
	Quantity  int    `json:"quantity"`
	Status    Status `json:"status"`

	// RequestedUnitIDs is the buyer's serial selection at placement time.
	// Units are not bound to the order until the seller confirms.
	RequestedUnitIDs []string `json:"requested_unit_ids,omitempty"`

	// AssignedUnitIDs is populated at confirmation for serialized products.
	AssignedUnitIDs []string `json:"assigned_unit_ids,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
}
