package units

import "time"

type Unit struct {
	ID             string     `json:"id"`
	ProductID      string     `json:"product_id"`
	SerialNumber   string     `json:"serial_number"`
	Status         Status     `json:"status"`
	ManufacturerID string     `json:"manufacturer_id"`
	SellerID       *string    `json:"seller_id,omitempty"`
	BuyerID        *string    `json:"buyer_id,omitempty"`
	AuthHash       string     `json:"-"` // never serialized to clients
	ManufacturedAt time.Time  `json:"manufactured_at"`
	DispatchedAt   *time.Time `json:"dispatched_at,omitempty"`
	SoldAt         *time.Time `json:"sold_at,omitempty"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty"`
}
