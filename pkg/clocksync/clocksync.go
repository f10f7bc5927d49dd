package clocksync

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/store"
)

// Offset is the client/server clock offset in milliseconds. All TTL
// arithmetic in the core adds the offset to locally-observed timestamps
// before comparing against stored expiry values, so expiry is consistent
// across clients with drifting local clocks.
type Offset struct {
	lock   sync.RWMutex
	millis int64
}

// Millis returns serverTime - localTime in milliseconds.
func (o *Offset) Millis() int64 {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.millis
}

func (o *Offset) set(millis int64) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.millis = millis
}

// Sync computes the clock offset with a single server-time round trip.
// If the call fails the offset stays zero and the client degrades to
// local-clock semantics; that is not fatal.
func Sync(ctx context.Context, s store.Store, clock clockwork.Clock) *Offset {
	offset := &Offset{}

	serverTime, err := s.ServerTime(ctx)
	if err != nil {
		log.Warn("failed to get server time, using local clock: %v", err)
		return offset
	}

	offset.set(serverTime - clock.Now().UnixMilli())
	return offset
}
