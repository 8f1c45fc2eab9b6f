package purchase

import "context"

// Ledger persists purchase records and serves the unioned history.
type Ledger interface {
	// Exists reports whether a record for the session id is already in the
	// primary ledger. Used as the pre-write idempotency check.
	Exists(ctx context.Context, sessionID string) (bool, error)

	// Append writes a new record to the primary ledger.
	Append(ctx context.Context, rec Record) error

	// History returns the user's records from the primary and legacy
	// ledgers, deduplicated and sorted newest first.
	History(ctx context.Context, userID string) ([]Record, error)
}
