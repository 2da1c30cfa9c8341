package model

// -----------------------------------------------------------------------------
// Request / Event Types
// -----------------------------------------------------------------------------

// ChargeRequest is one expected pending bank transfer to confirm.
// Created once per inbound check and immutable for the life of the run.
type ChargeRequest struct {
	Amount          int    // Expected transfer amount (KRW, whole won)
	PayerName       string // Expected sender name as the bank prints it
	RequestedTime   int64  // Unix seconds when the charge was requested
	SubscriberToken string // Relay stream access token

	// Correlation with the owning platform. Both must be set for the
	// completion callback to fire.
	ExternalUserID   int64
	ExternalChargeID int64
}

// HasCorrelation reports whether both correlation ids were supplied.
func (r ChargeRequest) HasCorrelation() bool {
	return r.ExternalUserID != 0 && r.ExternalChargeID != 0
}

// NotificationEvent is one push notification delivered by the relay.
// Ephemeral: consumed once by the extraction registry, never persisted.
type NotificationEvent struct {
	SourceApp string // Android package name of the originating app
	Title     string // Notification title text
	Body      string // Notification body text
}

// Observation is the amount/name pair recovered from one notification.
// A zero Amount or empty PayerName means the text did not parse.
type Observation struct {
	Amount    int
	PayerName string
}

// IsZero reports whether nothing useful was extracted.
func (o Observation) IsZero() bool {
	return o.Amount == 0 && o.PayerName == ""
}

// -----------------------------------------------------------------------------
// Ledger Types
// -----------------------------------------------------------------------------

// ChargeRecord is one confirmed charge as stored in the ledger.
// Records are append-only: never mutated or deleted after insert.
type ChargeRecord struct {
	Time      int64  // Requested time of the confirmed charge (unix seconds)
	Amount    int    // Confirmed amount (KRW)
	PayerName string // Sender name
	Device    string // Source application that delivered the confirming push
	Confirmed bool
}

// -----------------------------------------------------------------------------
// Outcome Types
// -----------------------------------------------------------------------------

// MatchResult is the decision of the match engine for one observation.
type MatchResult int

const (
	// NoMatch means the observation does not correspond to the request;
	// the run keeps listening.
	NoMatch MatchResult = iota

	// Accepted means the charge was confirmed and recorded.
	Accepted

	// DuplicateWindow means an identical charge already exists within
	// the dedupe window around the requested time.
	DuplicateWindow

	// DuplicateExact means the exact (time, amount, name) triple was
	// inserted concurrently by another run.
	DuplicateExact
)

// String returns the result name for logs.
func (r MatchResult) String() string {
	switch r {
	case NoMatch:
		return "no_match"
	case Accepted:
		return "accepted"
	case DuplicateWindow:
		return "duplicate_window"
	case DuplicateExact:
		return "duplicate_exact"
	default:
		return "unknown"
	}
}

// Outcome is the single terminal value of one orchestration run.
type Outcome struct {
	Success bool
	Amount  int
	Message string
}
