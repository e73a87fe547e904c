package redisx

import "time"

const (
	// Preference keys live under a namespace so one Redis can hold several
	// devices or environments: prefs:{namespace}:{key}
	KeyPrefs = "prefs:%s:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "text": "...", "color": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
