package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{external_id} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Cache status order: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Password reset: pwreset:{sha256(token)} -> user_id
	KeyPasswordReset = "pwreset:%s"
)

var (
	TTLIdempotency   = 24 * time.Hour
	TTLStatusCache   = 5 * time.Minute
	TTLDedup         = 48 * time.Hour
	TTLPasswordReset = 30 * time.Minute
)
