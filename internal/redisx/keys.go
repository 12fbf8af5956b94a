package redisx

import "time"

const (
	// Cache order status: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Cache available counts: avail:{product_id}:{owner_id} -> int
	KeyAvailability = "avail:%s:%s"

	// Buyer cart hash: cart:{buyer_id}, field {product_id}:{seller_id} -> CartItem JSON
	KeyCart = "cart:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Verification attempt counter per client: verify_attempts:{client}
	KeyVerifyAttempts = "verify_attempts:%s"
)

var (
	TTLStatusCache  = 5 * time.Minute
	TTLAvailability = 1 * time.Minute
	TTLCart         = 7 * 24 * time.Hour
	TTLDedup        = 48 * time.Hour
	TTLVerifyWindow = 1 * time.Minute
)
