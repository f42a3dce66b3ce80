package entity

import "time"

// StatusQueryLogEntry tracks the polling history of one payment id: the last
// raw gateway response and a monotonically incrementing query count. The
// count is the circuit breaker that bounds the retry loop against the
// gateway.
type StatusQueryLogEntry struct {
	ID uint64

	PaymentID string

	// Response is the last raw gateway answer, retained for audit.
	Response   string
	QueryCount int32

	DateAdded time.Time
}
