package purchase

import "errors"

var (
	// ErrDuplicateSession indicates a record for the session already exists.
	ErrDuplicateSession = errors.New("purchase: session already recorded")
	// ErrFailedToWrite indicates a ledger write failed.
	ErrFailedToWrite = errors.New("purchase: failed to write record")
	// ErrFailedToRead indicates a ledger read failed.
	ErrFailedToRead = errors.New("purchase: failed to read records")
)
