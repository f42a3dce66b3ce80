package entity

import "time"

// Payment lifecycle states. Completed, cancelled and error are terminal for
// the normal flow; a later confirmed status query may still supersede an
// error.
const (
	PaymentStatusPending   int32 = 2
	PaymentStatusDelayed   int32 = 3
	PaymentStatusCompleted int32 = 10
	PaymentStatusCancelled int32 = 20
	PaymentStatusError     int32 = 30
)

// StatusName returns the wire/API name of a payment status.
func StatusName(status int32) string {
	switch status {
	case PaymentStatusPending:
		return "pending"
	case PaymentStatusDelayed:
		return "delayed"
	case PaymentStatusCompleted:
		return "completed"
	case PaymentStatusCancelled:
		return "cancelled"
	case PaymentStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// PaymentRecord is one persisted order/payment pair. Records are created when
// the redirect form is generated and are never deleted; the full sent and
// received field sets are retained for reconciliation and audit.
type PaymentRecord struct {
	ID uint64

	OrderID   int64
	PaymentID string

	PaymentMethod string
	Status        int32

	// DataSent and DataReceived are the outbound and inbound field
	// snapshots keyed by wire field name.
	DataSent     map[string]string
	DataReceived map[string]string

	DateAdded   time.Time
	DateUpdated time.Time
}

func (r *PaymentRecord) IsCompleted() bool { return r.Status == PaymentStatusCompleted }
func (r *PaymentRecord) IsCancelled() bool { return r.Status == PaymentStatusCancelled }

// IsTerminal reports whether the record left the polling flow. Error is
// terminal for callbacks but stays eligible for status query supersession.
func (r *PaymentRecord) IsTerminal() bool {
	return r.Status == PaymentStatusCompleted || r.Status == PaymentStatusCancelled || r.Status == PaymentStatusError
}

// CanTransition enforces the transition rules: pending may move anywhere,
// delayed may still complete, cancel or fail, terminal states only repeat
// themselves (idempotent no-op).
func (r *PaymentRecord) CanTransition(to int32) bool {
	if r.Status == to {
		return true
	}
	switch r.Status {
	case PaymentStatusPending:
		return to == PaymentStatusCompleted || to == PaymentStatusCancelled || to == PaymentStatusError || to == PaymentStatusDelayed
	case PaymentStatusDelayed:
		return to == PaymentStatusCompleted || to == PaymentStatusCancelled || to == PaymentStatusError
	case PaymentStatusError:
		// A confirmed status query may supersede an earlier error.
		return to == PaymentStatusCompleted || to == PaymentStatusCancelled
	default:
		return false
	}
}

// Polling windows for the background reconciliation job, measured from
// DateAdded and DateUpdated. A payment older than seven days is never
// auto-checked again.
const (
	checkMaxAge        = 7 * 24 * time.Hour
	checkYoungMinAge   = 5 * time.Minute
	checkYoungMaxAge   = 2 * time.Hour
	checkYoungStale    = 20 * time.Minute
	checkMidMaxAge     = 24 * time.Hour
	checkMidStale      = 2 * time.Hour
	checkCatchAllStale = 12 * time.Hour
)

// IsTimeToCheck decides whether this record is due for a status query at the
// given time.
func (r *PaymentRecord) IsTimeToCheck(now time.Time) bool {
	if r.IsTerminal() {
		return false
	}

	age := now.Sub(r.DateAdded)
	if age >= checkMaxAge {
		return false
	}

	// Never queried or updated since creation.
	if !r.DateUpdated.After(r.DateAdded) {
		return true
	}

	sinceUpdate := now.Sub(r.DateUpdated)
	switch {
	case age >= checkYoungMinAge && age < checkYoungMaxAge && sinceUpdate > checkYoungStale:
		return true
	case age >= checkYoungMaxAge && age < checkMidMaxAge && sinceUpdate > checkMidStale:
		return true
	case sinceUpdate > checkCatchAllStale:
		return true
	default:
		return false
	}
}
