package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mskovgaard/warboard/pkg/clocksync"
	"github.com/mskovgaard/warboard/pkg/store"
)

// Operations is the vocabulary of atomic state transitions over the
// shared game, board, hand and event log documents. Every operation is a
// single-document transaction; the two-document DiscardDisplayedCards is
// the documented exception.
type Operations struct {
	store  store.Store
	clock  clockwork.Clock
	offset *clocksync.Offset
	rand   *rand.Rand
}

// NewOperationsOptions contains options for creating Operations.
type NewOperationsOptions struct {
	Store store.Store
	Clock clockwork.Clock
	// Offset is the synced clock offset. Optional; nil means local-clock
	// semantics.
	Offset *clocksync.Offset
	// Rand is the randomness source for card draws and country
	// distribution. Optional; defaults to a time-seeded source.
	Rand *rand.Rand
}

func NewOperations(opts NewOperationsOptions) *Operations {
	offset := opts.Offset
	if offset == nil {
		offset = &clocksync.Offset{}
	}
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Operations{
		store:  opts.Store,
		clock:  opts.Clock,
		offset: offset,
		rand:   r,
	}
}

// now returns the current time in server milliseconds.
func (o *Operations) now() int64 {
	return o.clock.Now().UnixMilli() + o.offset.Millis()
}

// ErrValidation is a rejected operation with a user-facing message. The
// document is left untouched.
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

func IsValidation(err error) bool {
	var v *ErrValidation
	return errors.As(err, &v)
}
