package store

import (
	"context"
	"encoding/json"
)

// Value is a document snapshot. A nil Value means the document is absent.
type Value = json.RawMessage

// Mutator computes the next value of a document from its current value.
// It must be free of external side effects: the store may run it any
// number of times before a commit succeeds. Returning the input unchanged
// aborts the transaction without writing.
type Mutator func(current Value) (Value, error)

// Store is the shared-state document store the sync core runs against.
// Documents are independently transacted; there is no multi-document
// transaction primitive.
type Store interface {
	// Transact applies mutator to the document at key under optimistic
	// concurrency: the mutator is re-run on the fresh value until the
	// write commits without a conflicting concurrent write. The committed
	// value is returned.
	Transact(ctx context.Context, key string, mutator Mutator) (Value, error)

	// Set overwrites the document at key. A nil value deletes it.
	Set(ctx context.Context, key string, value Value) error

	// Once reads the current value of the document at key.
	Once(ctx context.Context, key string) (Value, error)

	// Subscribe returns a subscription that delivers the current value
	// immediately and every committed change after that. Intermediate
	// values may be coalesced; the latest committed value is always
	// delivered.
	Subscribe(ctx context.Context, key string) (*Subscription, error)

	// PresenceHook registers a store-managed write of value to key that
	// fires when the connection is lost, with no further client code
	// running. The returned hook can be cancelled for a clean leave.
	PresenceHook(ctx context.Context, key string, value Value) (*Hook, error)

	// Connectivity returns a subscription to the connection state,
	// delivering the current state immediately.
	Connectivity(ctx context.Context) (*ConnSubscription, error)

	// ServerTime returns the store's notion of now in unix milliseconds.
	ServerTime(ctx context.Context) (int64, error)
}

// Subscription is a live read of one document.
type Subscription struct {
	// C delivers document snapshots. It is closed when the subscription
	// is cancelled.
	C      <-chan Value
	cancel func()
}

// Cancel stops the subscription and closes C.
func (s *Subscription) Cancel() {
	s.cancel()
}

// ConnSubscription is a live read of the connection state.
type ConnSubscription struct {
	C      <-chan bool
	cancel func()
}

func (s *ConnSubscription) Cancel() {
	s.cancel()
}

// Hook is a registered on-disconnect write.
type Hook struct {
	cancel func()
}

// Cancel deregisters the hook so it will not fire on disconnect.
func (h *Hook) Cancel() {
	h.cancel()
}

type ErrTooManyRetries struct {
}

func (e *ErrTooManyRetries) Error() string {
	return "transaction retried too many times without committing"
}

func IsTooManyRetries(err error) bool {
	_, ok := err.(*ErrTooManyRetries)
	return ok
}
