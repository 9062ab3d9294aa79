package gifp4

import (
	"context"
	"fmt"
)

// Store is a durable key-value store with atomic batches. Keys are opaque byte strings.
//
// Implementations must be safe for concurrent use. Any engine failure is
// returned as a *StoreError.
type Store interface {
	// TryClaim inserts key with an empty value if it is absent and reports
	// whether it did. Of several concurrent claims of one key, exactly one wins.
	TryClaim(ctx context.Context, key []byte) (bool, error)
	// ApplyBatch applies all writes or none of them.
	ApplyBatch(ctx context.Context, writes []Write) error
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	Close() error
}

// Write is a single key/value pair of a batch.
type Write struct {
	Key   []byte
	Value []byte
}

// StoreError is a failure of the storage engine behind a Store.
type StoreError struct {
	Op  string // claim, batch, get, open, close
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
