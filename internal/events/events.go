package events

import (
	"encoding/json"
	"time"
)

const (
	EventUnitsManufactured = "UnitsManufactured"
	EventUnitsDispatched   = "UnitsDispatched"
	EventUnitsRecalled     = "UnitsRecalled"
	EventUnitDeleted       = "UnitDeleted"
	EventStockTransferred  = "StockTransferred"
	EventOrderPlaced       = "OrderPlaced"
	EventOrderConfirmed    = "OrderConfirmed"
	EventOrderDelivered    = "OrderDelivered"
	EventOrderCancelled    = "OrderCancelled"
	EventReturnRequested   = "ReturnRequested"
	EventReturnResolved    = "ReturnResolved"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload types per event ----

type UnitRef struct {
	UnitID    string `json:"unit_id"`
	ProductID string `json:"product_id"`
}

type UnitsManufacturedPayload struct {
	ProductID      string   `json:"product_id"`
	ManufacturerID string   `json:"manufacturer_id"`
	UnitIDs        []string `json:"unit_ids"`
}

type UnitsDispatchedPayload struct {
	SellerID string    `json:"seller_id"`
	Units    []UnitRef `json:"units"`
}

type UnitsRecalledPayload struct {
	Units []UnitRef `json:"units"`
}

type UnitDeletedPayload struct {
	UnitID    string `json:"unit_id"`
	ProductID string `json:"product_id"`
}

type StockTransferredPayload struct {
	ProductID string  `json:"product_id"`
	FromOwner *string `json:"from_owner,omitempty"`
	ToOwner   *string `json:"to_owner,omitempty"`
	Quantity  int     `json:"quantity"`
}

type OrderPayload struct {
	OrderID    string   `json:"order_id"`
	ProductID  string   `json:"product_id"`
	SellerID   string   `json:"seller_id"`
	BuyerID    string   `json:"buyer_id"`
	Quantity   int      `json:"quantity"`
	Serialized bool     `json:"serialized"`
	UnitIDs    []string `json:"unit_ids,omitempty"`
	// Accepted is set on ReturnResolved only.
	Accepted *bool `json:"accepted,omitempty"`
}
