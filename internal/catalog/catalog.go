package catalog

import "time"

type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ManufacturerID string    `json:"manufacturer_id"`
	IsSerialized   bool      `json:"is_serialized"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
