package redisx

import "time"

const (
	// Session token -> account id: session:{token}
	KeySession = "session:%s"

	// Transfer idempotency: idem:transfer:{account_id}:{Idempotency-Key} -> transfer id
	KeyIdemTransfer = "idem:transfer:%d:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Daily counters: hash stats:{yyyy-mm-dd}; all-time counters: hash stats:total
	KeyStatsDay   = "stats:%s"
	KeyStatsTotal = "stats:total"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
	TTLStatsDay    = 90 * 24 * time.Hour
)
